package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	. "github.com/lidofinance/govtx/client/api/dto"
	cs "github.com/lidofinance/govtx/client/api/http_api/context_service"
	req "github.com/lidofinance/govtx/client/api/http_api/requests"
	"github.com/lidofinance/govtx/client/api/http_api/responses"
	"github.com/lidofinance/govtx/client/services/flow"
)

func (a *HTTPApp) CreateRfpFlow(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &CreateRfpFlowDTO{}
	if err := stx.BindToDTO(&req.CreateRfpFlowForm{}, formDTO); err != nil {
		return err
	}

	f, err := a.flows.CreateRfpFlow(stx.Request().Context(), formDTO.Form, formDTO.Kind)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, a.flowResponse(stx, f))
}

func (a *HTTPApp) CreateTipFlow(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &CreateTipFlowDTO{}
	if err := stx.BindToDTO(&req.CreateTipFlowForm{}, formDTO); err != nil {
		return err
	}

	f, err := a.flows.CreateTipFlow(stx.Request().Context(), formDTO.Form)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, a.flowResponse(stx, f))
}

func (a *HTTPApp) GetFlows(c echo.Context) error {
	stx := c.(*cs.ContextService)

	flows := a.flows.GetFlows()
	resp := make([]responses.FlowResponse, 0, len(flows))
	for _, f := range flows {
		resp = append(resp, a.flowResponse(stx, f))
	}
	return stx.Json(http.StatusOK, resp)
}

func (a *HTTPApp) GetFlow(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &FlowIdDTO{}
	if err := stx.BindToDTO(&req.FlowIdForm{}, formDTO); err != nil {
		return err
	}

	f, err := a.flows.GetFlow(formDTO.FlowID)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, a.flowResponse(stx, f))
}

func (a *HTTPApp) DeleteFlow(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &FlowIdDTO{}
	if err := stx.BindToDTO(&req.FlowIdForm{}, formDTO); err != nil {
		return err
	}

	if err := a.flows.DeleteFlow(formDTO.FlowID); err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, "ok")
}

func (a *HTTPApp) GetNextRfpTitle(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &RfpTitleDTO{}
	if err := stx.BindToDTO(&req.RfpTitleForm{}, formDTO); err != nil {
		return err
	}

	title, err := a.flows.NextRfpTitle(stx.Request().Context(), formDTO.ProjectTitle)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, title)
}

func (a *HTTPApp) flowResponse(stx *cs.ContextService, f *flow.Flow) responses.FlowResponse {
	return responses.FlowResponse{
		FlowRecord: f.Record(),
		Steps:      f.Steps(),
		ActiveStep: f.ActiveStep(stx.Request().Context()),
	}
}
