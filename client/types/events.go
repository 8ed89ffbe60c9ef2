package types

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

type TxEventType string

const (
	TxEventSigned      TxEventType = "signed"
	TxEventBroadcasted TxEventType = "broadcasted"
	TxEventInBlock     TxEventType = "in_block"
	TxEventFinalized   TxEventType = "finalized"
	TxEventError       TxEventType = "error"
)

// TxEvent is one lifecycle event of a submission attempt
type TxEvent struct {
	Type      TxEventType `json:"type"`
	AttemptID string      `json:"attemptId"`
	Step      StepTag     `json:"step"`
	// Finalized is set on in_block when the block is already finalized
	Finalized bool              `json:"finalized,omitempty"`
	Ok        bool              `json:"ok,omitempty"`
	Payload   *FinalizedPayload `json:"payload,omitempty"`
	Err       *TxError          `json:"error,omitempty"`
	At        time.Time         `json:"at"`
}

// IsDone reports Finalized{ok:true}
func (e *TxEvent) IsDone() bool {
	return e != nil && e.Type == TxEventFinalized && e.Ok
}

// IsCancelled reports Error{Cancelled}, which means "no lifecycle"
func (e *TxEvent) IsCancelled() bool {
	return e != nil && e.Type == TxEventError && e.Err != nil && errors.Is(e.Err, ErrCancelled)
}

// IsTerminal reports whether no more events are expected for the attempt
func (e *TxEvent) IsTerminal() bool {
	return e != nil && (e.Type == TxEventFinalized || e.Type == TxEventError)
}

type BlockRef struct {
	Hash   string `json:"hash"`
	Number uint32 `json:"number"`
	// Index is the extrinsic index inside the block
	Index uint32 `json:"index"`
}

// Timepoint locates an extrinsic, used by multisig calls
type Timepoint struct {
	Height uint32 `json:"height"`
	Index  uint32 `json:"index"`
}

// ChainEvent is a runtime event emitted by the finalized extrinsic
type ChainEvent struct {
	Pallet string                 `json:"pallet"`
	Name   string                 `json:"name"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

func (e ChainEvent) Is(pallet, name string) bool {
	return e.Pallet == pallet && e.Name == name
}

// Uint reads an unsigned integer field, numbers may come as JSON floats or strings
func (e ChainEvent) Uint(field string) (uint32, bool) {
	v, ok := e.Fields[field]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case uint32:
		return n, true
	case int:
		if n >= 0 && n <= math.MaxUint32 {
			return uint32(n), true
		}
	case int64:
		if n >= 0 && n <= math.MaxUint32 {
			return uint32(n), true
		}
	case uint64:
		if n <= math.MaxUint32 {
			return uint32(n), true
		}
	case float64:
		if n >= 0 && n <= math.MaxUint32 && n == math.Trunc(n) {
			return uint32(n), true
		}
	case json.Number:
		if u, err := strconv.ParseUint(n.String(), 10, 32); err == nil {
			return uint32(u), true
		}
	case string:
		if u, err := strconv.ParseUint(n, 10, 32); err == nil {
			return uint32(u), true
		}
	}
	return 0, false
}

type FinalizedPayload struct {
	TxHash        string       `json:"txHash"`
	Block         BlockRef     `json:"block"`
	Events        []ChainEvent `json:"events"`
	DispatchError string       `json:"dispatchError,omitempty"`
}

// FindEvents returns events of the given kind in emission order
func (p *FinalizedPayload) FindEvents(pallet, name string) []ChainEvent {
	if p == nil {
		return nil
	}
	var found []ChainEvent
	for _, e := range p.Events {
		if e.Is(pallet, name) {
			found = append(found, e)
		}
	}
	return found
}

// ReferendumIndex extracts the referendum index from Referenda events
func (p *FinalizedPayload) ReferendumIndex() (uint32, bool) {
	for _, name := range []string{"Submitted", "DecisionDepositPlaced"} {
		for _, e := range p.FindEvents("Referenda", name) {
			if index, ok := e.Uint("index"); ok {
				return index, true
			}
		}
	}
	return 0, false
}
