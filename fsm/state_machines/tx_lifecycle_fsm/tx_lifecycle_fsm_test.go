package tx_lifecycle_fsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/fsm/fsm"
)

func event(t types.TxEventType, attemptID string) *types.TxEvent {
	return &types.TxEvent{Type: t, AttemptID: attemptID, Step: types.StepBounty}
}

func TestTxLifecycleFSM_HappyPath(t *testing.T) {
	req := require.New(t)

	m := New("a1")
	req.Equal(StateTxIdle, m.State())
	req.Nil(m.Latest())
	req.True(m.IsLive())

	req.NoError(m.Apply(event(types.TxEventSigned, "a1")))
	req.NoError(m.Apply(event(types.TxEventBroadcasted, "a1")))
	req.NoError(m.Apply(event(types.TxEventInBlock, "a1")))
	req.NoError(m.Apply(event(types.TxEventInBlock, "a1")))

	finalized := event(types.TxEventFinalized, "a1")
	finalized.Ok = true
	req.NoError(m.Apply(finalized))

	req.Equal(StateTxFinalized, m.State())
	req.False(m.IsLive())
	req.Same(finalized, m.Latest())
	req.Len(m.Events(), 5)

	// a done attempt is terminal
	req.ErrorIs(m.Apply(event(types.TxEventInBlock, "a1")), fsm.ErrEventNotAllowed)
	_, err := m.Cancel(types.StepBounty)
	req.ErrorIs(err, fsm.ErrEventNotAllowed)
}

func TestTxLifecycleFSM_Order(t *testing.T) {
	req := require.New(t)

	m := New("a1")
	req.ErrorIs(m.Apply(event(types.TxEventBroadcasted, "a1")), fsm.ErrEventNotAllowed)
	req.ErrorIs(m.Apply(event(types.TxEventFinalized, "a1")), fsm.ErrEventNotAllowed)

	req.NoError(m.Apply(event(types.TxEventSigned, "a1")))
	req.ErrorIs(m.Apply(event(types.TxEventSigned, "a1")), fsm.ErrEventNotAllowed)
	req.ErrorIs(m.Apply(event(types.TxEventInBlock, "a1")), fsm.ErrEventNotAllowed)
	req.Len(m.Events(), 1)
}

func TestTxLifecycleFSM_Errors(t *testing.T) {
	req := require.New(t)

	m := New("a1")
	req.ErrorIs(m.Apply(event(types.TxEventSigned, "a2")), ErrForeignAttempt)
	req.Error(m.Apply(event(types.TxEventError, "a1")))
	req.Equal(StateTxIdle, m.State())

	failed := event(types.TxEventError, "a1")
	failed.Err = types.NewTxError(types.ErrSignerRejected, "")
	req.NoError(m.Apply(failed))
	req.Equal(StateTxFailed, m.State())

	m = New("a2")
	req.NoError(m.Apply(event(types.TxEventSigned, "a2")))
	req.NoError(m.Apply(event(types.TxEventBroadcasted, "a2")))
	req.Error(m.Apply(event(types.TxEventFinalized, "a2")))

	dispatchFailed := event(types.TxEventFinalized, "a2")
	dispatchFailed.Err = types.NewTxError(types.ErrDispatchError, "Bounties.InsufficientProposersBalance")
	req.NoError(m.Apply(dispatchFailed))
	req.Equal(StateTxFinalized, m.State())
	req.False(m.Latest().IsDone())
}

func TestTxLifecycleFSM_Cancel(t *testing.T) {
	req := require.New(t)

	m := New("a1")
	req.NoError(m.Apply(event(types.TxEventSigned, "a1")))

	cancelled, err := m.Cancel(types.StepReferendum)
	req.NoError(err)
	req.True(cancelled.IsCancelled())
	req.Equal("a1", cancelled.AttemptID)
	req.Equal(StateTxCancelled, m.State())
	req.False(m.IsLive())

	// cancellation cannot be emitted as an external event
	m = New("a2")
	_, err = m.Do(eventTxCancelledInternal, cancelled)
	req.ErrorIs(err, fsm.ErrEventInternal)
}

func TestTxLifecycleFSM_Replay(t *testing.T) {
	req := require.New(t)

	finalized := event(types.TxEventFinalized, "a1")
	finalized.Ok = true
	events := []*types.TxEvent{
		event(types.TxEventSigned, "a1"),
		event(types.TxEventBroadcasted, "a1"),
		finalized,
	}

	m := New("a1")
	req.NoError(m.Replay(events))
	req.True(m.Latest().IsDone())

	m = New("a1")
	req.Error(m.Replay(events[1:]))
}
