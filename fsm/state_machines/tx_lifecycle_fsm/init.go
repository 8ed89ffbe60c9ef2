package tx_lifecycle_fsm

import (
	"sync"

	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/fsm/fsm"
)

const (
	FsmName = "tx_lifecycle_fsm"

	StateTxIdle        = fsm.State("state_tx_idle")
	StateTxSigned      = fsm.State("state_tx_signed")
	StateTxBroadcasted = fsm.State("state_tx_broadcasted")
	StateTxInBlock     = fsm.State("state_tx_in_block")
	// Final
	StateTxFinalized = fsm.State("state_tx_finalized")
	StateTxFailed    = fsm.State("state_tx_failed")
	StateTxCancelled = fsm.State("state_tx_cancelled")

	// Events

	EventTxSigned      = fsm.Event("event_tx_signed")
	EventTxBroadcasted = fsm.Event("event_tx_broadcasted")
	EventTxInBlock     = fsm.Event("event_tx_in_block")
	EventTxFinalized   = fsm.Event("event_tx_finalized")
	EventTxFailed      = fsm.Event("event_tx_failed")

	eventTxCancelledInternal = fsm.Event("event_tx_cancelled_internal")
)

var liveStates = []fsm.State{StateTxIdle, StateTxSigned, StateTxBroadcasted, StateTxInBlock}

// TxLifecycleFSM orders the events of a single submission attempt:
// idle -> signed -> broadcasted -> in_block* -> finalized, with failed or
// cancelled reachable from every live state.
type TxLifecycleFSM struct {
	*fsm.FSM
	attemptID string

	eventsMu sync.RWMutex
	events   []*types.TxEvent
}

func New(attemptID string) *TxLifecycleFSM {
	machine := &TxLifecycleFSM{
		attemptID: attemptID,
	}

	machine.FSM = fsm.MustNewFSM(
		FsmName,
		StateTxIdle,
		[]fsm.EventDesc{
			{Name: EventTxSigned, SrcState: []fsm.State{StateTxIdle}, DstState: StateTxSigned},
			{Name: EventTxBroadcasted, SrcState: []fsm.State{StateTxSigned}, DstState: StateTxBroadcasted},

			// in_block repeats on re-orgs and best block changes
			{Name: EventTxInBlock, SrcState: []fsm.State{StateTxBroadcasted, StateTxInBlock}, DstState: StateTxInBlock},
			{Name: EventTxFinalized, SrcState: []fsm.State{StateTxBroadcasted, StateTxInBlock}, DstState: StateTxFinalized},

			// Errors
			{Name: EventTxFailed, SrcState: liveStates, DstState: StateTxFailed},
			{Name: eventTxCancelledInternal, SrcState: liveStates, DstState: StateTxCancelled, IsInternal: true},
		},
		fsm.Callbacks{
			EventTxSigned:            machine.actionRecordEvent,
			EventTxBroadcasted:       machine.actionRecordEvent,
			EventTxInBlock:           machine.actionRecordEvent,
			EventTxFinalized:         machine.actionRecordEvent,
			EventTxFailed:            machine.actionRecordEvent,
			eventTxCancelledInternal: machine.actionRecordEvent,
		},
	)

	return machine
}

func (m *TxLifecycleFSM) AttemptID() string {
	return m.attemptID
}
