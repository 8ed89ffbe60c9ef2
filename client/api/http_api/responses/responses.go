package responses

import (
	"github.com/lidofinance/govtx/client/types"
)

type BaseResponse struct {
	ErrorMessage string      `json:"error_message,omitempty"`
	Result       interface{} `json:"result"`
}

// FlowResponse is a stored flow with its steps and the step to show
type FlowResponse struct {
	types.FlowRecord
	Steps      []types.StepTag  `json:"steps"`
	ActiveStep types.ActiveStep `json:"activeStep"`
}

type SubmitResponse struct {
	AttemptID string `json:"attemptId"`
}

type AddressResponse struct {
	Address string        `json:"address"`
	Network string        `json:"network"`
	Free    types.Balance `json:"free"`
}

// AttemptResponse is a submission attempt as shown to users. The internal
// cancellation event is left out and reported as Superseded.
type AttemptResponse struct {
	types.AttemptRecord
	Superseded bool `json:"superseded"`
}
