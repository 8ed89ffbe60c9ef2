package requests

import (
	"github.com/lidofinance/govtx/client/types"
)

type FlowIdForm struct {
	FlowID string `query:"flowID" json:"flowID" validate:"attr=flowID,min=1"`
}

type SubmitStepForm struct {
	FlowID string        `json:"flowID" validate:"attr=flowID,min=1"`
	Step   types.StepTag `json:"step" validate:"attr=step,min=1"`
}

type RfpTitleForm struct {
	ProjectTitle string `query:"projectTitle" json:"projectTitle" validate:"attr=projectTitle,min=1"`
}

// CreateRfpFlowForm leaves Kind empty to derive it from the form
type CreateRfpFlowForm struct {
	Kind types.FlowKind `json:"kind"`
	Form types.RfpForm  `json:"form"`
}

type CreateTipFlowForm struct {
	Form types.TipForm `json:"form"`
}
