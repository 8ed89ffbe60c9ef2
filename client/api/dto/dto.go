package dto

import "github.com/lidofinance/govtx/client/types"

// This packages contains DTO (Data Transfer Object) structures
// for providing validated and sanitized values to service layer

type FlowIdDTO struct {
	FlowID string
}

type SubmitStepDTO struct {
	FlowID string
	Step   types.StepTag
}

type RfpTitleDTO struct {
	ProjectTitle string
}

type CreateRfpFlowDTO struct {
	Kind types.FlowKind
	Form types.RfpForm
}

type CreateTipFlowDTO struct {
	Form types.TipForm
}
