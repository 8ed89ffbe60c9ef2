package types

import "time"

// FlowRecord is the persisted form of a submission flow
type FlowRecord struct {
	ID      string   `json:"id"`
	Kind    FlowKind `json:"kind"`
	Network string   `json:"network"`
	Signer  string   `json:"signer"`
	// Title is the on-chain bounty description, e.g. "KSM RFP #12: Indexer"
	Title string   `json:"title,omitempty"`
	Rfp   *RfpForm `json:"rfp,omitempty"`
	Tip   *TipForm `json:"tip,omitempty"`
	// Attempts maps a step to its current attempt id
	Attempts  map[StepTag]string `json:"attempts"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AttemptRecord keeps the events of one submission attempt in arrival order
type AttemptRecord struct {
	ID        string     `json:"id"`
	FlowID    string     `json:"flowId"`
	Step      StepTag    `json:"step"`
	Events    []*TxEvent `json:"events"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Last returns the latest event or nil
func (r *AttemptRecord) Last() *TxEvent {
	if len(r.Events) == 0 {
		return nil
	}
	return r.Events[len(r.Events)-1]
}
