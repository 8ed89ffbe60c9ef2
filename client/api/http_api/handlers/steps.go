package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	. "github.com/lidofinance/govtx/client/api/dto"
	cs "github.com/lidofinance/govtx/client/api/http_api/context_service"
	req "github.com/lidofinance/govtx/client/api/http_api/requests"
	"github.com/lidofinance/govtx/client/api/http_api/responses"
	"github.com/lidofinance/govtx/client/types"
)

func (a *HTTPApp) GetActiveStep(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &FlowIdDTO{}
	if err := stx.BindToDTO(&req.FlowIdForm{}, formDTO); err != nil {
		return err
	}

	step, err := a.flows.ActiveStep(stx.Request().Context(), formDTO.FlowID)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, step)
}

func (a *HTTPApp) GetCostEstimate(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &FlowIdDTO{}
	if err := stx.BindToDTO(&req.FlowIdForm{}, formDTO); err != nil {
		return err
	}

	estimate, err := a.flows.CostEstimate(stx.Request().Context(), formDTO.FlowID)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, estimate)
}

func (a *HTTPApp) SubmitStep(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &SubmitStepDTO{}
	if err := stx.BindToDTO(&req.SubmitStepForm{}, formDTO); err != nil {
		return err
	}

	attemptID, err := a.flows.Submit(stx.Request().Context(), formDTO.FlowID, formDTO.Step)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	return stx.Json(http.StatusOK, responses.SubmitResponse{AttemptID: attemptID})
}

func (a *HTTPApp) GetAttempts(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &FlowIdDTO{}
	if err := stx.BindToDTO(&req.FlowIdForm{}, formDTO); err != nil {
		return err
	}

	attempts, err := a.flows.Attempts(formDTO.FlowID)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	resp := make([]responses.AttemptResponse, 0, len(attempts))
	for _, record := range attempts {
		resp = append(resp, attemptResponse(record))
	}
	return stx.Json(http.StatusOK, resp)
}

func attemptResponse(record *types.AttemptRecord) responses.AttemptResponse {
	resp := responses.AttemptResponse{AttemptRecord: *record}
	resp.Events = make([]*types.TxEvent, 0, len(record.Events))
	for _, event := range record.Events {
		if event.IsCancelled() {
			resp.Superseded = true
			continue
		}
		resp.Events = append(resp.Events, event)
	}
	return resp
}

func (a *HTTPApp) GetReferendumIndex(c echo.Context) error {
	stx := c.(*cs.ContextService)

	formDTO := &FlowIdDTO{}
	if err := stx.BindToDTO(&req.FlowIdForm{}, formDTO); err != nil {
		return err
	}

	index, err := a.flows.ReferendumIndex(formDTO.FlowID)
	if err != nil {
		return stx.JsonServiceError(err)
	}
	// null until the referendum is created
	return stx.JSON(http.StatusOK, &cs.CSJsonResp{Result: index})
}
