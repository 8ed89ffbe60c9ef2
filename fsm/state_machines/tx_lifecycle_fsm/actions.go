package tx_lifecycle_fsm

import (
	"errors"
	"fmt"
	"time"

	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/fsm/fsm"
)

var ErrForeignAttempt = errors.New("event belongs to another attempt")

// EventFor maps a lifecycle event to its machine event
func EventFor(event *types.TxEvent) (fsm.Event, error) {
	switch event.Type {
	case types.TxEventSigned:
		return EventTxSigned, nil
	case types.TxEventBroadcasted:
		return EventTxBroadcasted, nil
	case types.TxEventInBlock:
		return EventTxInBlock, nil
	case types.TxEventFinalized:
		return EventTxFinalized, nil
	case types.TxEventError:
		if event.IsCancelled() {
			return eventTxCancelledInternal, nil
		}
		return EventTxFailed, nil
	default:
		return "", fmt.Errorf("unknown tx event type \"%s\"", event.Type)
	}
}

// Apply validates the event against the attempt order and records it
func (m *TxLifecycleFSM) Apply(event *types.TxEvent) error {
	fsmEvent, err := EventFor(event)
	if err != nil {
		return err
	}
	do := m.Do
	if fsmEvent == eventTxCancelledInternal {
		do = m.DoInternal
	}
	if _, err = do(fsmEvent, event); err != nil {
		return fmt.Errorf("failed to apply %s to attempt %s: %w", event.Type, m.attemptID, err)
	}
	return nil
}

// Cancel moves a live attempt to cancelled and returns the Error{Cancelled} event
func (m *TxLifecycleFSM) Cancel(step types.StepTag) (*types.TxEvent, error) {
	event := &types.TxEvent{
		Type:      types.TxEventError,
		AttemptID: m.attemptID,
		Step:      step,
		Err:       types.NewTxError(types.ErrCancelled, "superseded by a new attempt"),
		At:        time.Now().UTC(),
	}
	if err := m.Apply(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Replay restores the machine from stored events, stops at the first invalid one
func (m *TxLifecycleFSM) Replay(events []*types.TxEvent) error {
	for _, event := range events {
		if err := m.Apply(event); err != nil {
			return err
		}
	}
	return nil
}

// Latest returns the last accepted event or nil
func (m *TxLifecycleFSM) Latest() *types.TxEvent {
	m.eventsMu.RLock()
	defer m.eventsMu.RUnlock()

	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *TxLifecycleFSM) Events() []*types.TxEvent {
	m.eventsMu.RLock()
	defer m.eventsMu.RUnlock()

	return append([]*types.TxEvent(nil), m.events...)
}

// IsLive reports whether more events are expected
func (m *TxLifecycleFSM) IsLive() bool {
	return !m.IsFinState(m.State())
}

func (m *TxLifecycleFSM) actionRecordEvent(inEvent fsm.Event, args ...interface{}) (outEvent fsm.Event, response interface{}, err error) {
	if len(args) != 1 {
		err = errors.New("{arg0} required {TxEvent}")
		return
	}

	event, ok := args[0].(*types.TxEvent)
	if !ok || event == nil {
		err = errors.New("cannot cast {arg0} to type {TxEvent}")
		return
	}

	if event.AttemptID != m.attemptID {
		err = fmt.Errorf("%w: %s", ErrForeignAttempt, event.AttemptID)
		return
	}

	switch event.Type {
	case types.TxEventError:
		if event.Err == nil {
			err = errors.New("error event must carry an error")
			return
		}
	case types.TxEventFinalized:
		if !event.Ok && event.Err == nil {
			err = errors.New("failed finalization must carry a dispatch error")
			return
		}
	}

	m.eventsMu.Lock()
	m.events = append(m.events, event)
	m.eventsMu.Unlock()

	response = event
	return
}
