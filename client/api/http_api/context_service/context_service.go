package context_service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/censync/go-dto"
	"github.com/censync/go-validator"
	"github.com/labstack/echo/v4"

	"github.com/lidofinance/govtx/client/modules/rate"
	flowrepo "github.com/lidofinance/govtx/client/repositories/flow"
	"github.com/lidofinance/govtx/client/services/flow"
	"github.com/lidofinance/govtx/client/types"
)

type ContextService struct {
	echo.Context
}

func New(c echo.Context) *ContextService {
	return &ContextService{
		c,
	}
}

type CSJsonResp struct {
	Result interface{} `json:"result"`
}

// Custom error
type CSErrorResp struct {
	Result       interface{} `json:"result"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

func (e *CSErrorResp) Error() string {
	if e == nil {
		return ""
	}
	return e.ErrorMessage
}

// BindToRequest populates the request fields based on the context path and query parameters and body
// and validates the result.
func (cs *ContextService) BindToRequest(request interface{}) error {
	if err := cs.Bind(request); err != nil {
		return cs.JsonError(http.StatusBadRequest, fmt.Errorf("failed to read request body: %v", err))
	}
	if err := validator.Validate(request); !err.IsEmpty() {
		return cs.JsonError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// BindToDTO builds a request of the given form based on the context and converts it to a DTO.
func (cs *ContextService) BindToDTO(requestForm, dtoForm interface{}) error {
	if err := cs.BindToRequest(requestForm); err != nil {
		return err
	}
	if err := dto.RequestToDTO(dtoForm, requestForm); err != nil {
		return cs.JsonError(http.StatusBadRequest, err)
	}
	return nil
}

func (cs *ContextService) Json(code int, data interface{}) error {
	if data == nil {
		return cs.JsonEmpty(code)
	}
	return cs.JSON(code, &CSJsonResp{
		Result: data,
	})
}

func (cs *ContextService) JsonEmpty(code int) error {
	return cs.JSON(code, &CSJsonResp{
		Result: struct{}{},
	})
}

func (cs *ContextService) JsonError(code int, err error) error {
	if err == nil {
		err = errors.New("undefined error")
	}
	return cs.JSON(code, &CSErrorResp{
		Result:       struct{}{},
		ErrorMessage: err.Error(),
	})
}

// JsonServiceError responds with the status matching a flow service error
func (cs *ContextService) JsonServiceError(err error) error {
	return cs.JsonError(StatusCode(err), err)
}

// StatusCode maps the flow service errors to HTTP statuses
func StatusCode(err error) int {
	switch {
	case errors.Is(err, flowrepo.ErrFlowNotFound), errors.Is(err, types.ErrUnknownFlow):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrInvalidForm), errors.Is(err, types.ErrUnknownStep),
		errors.Is(err, types.ErrTipTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrStepDone), errors.Is(err, flow.ErrFlowIsLive),
		errors.Is(err, types.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrPendingDependency), errors.Is(err, rate.ErrRateUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
