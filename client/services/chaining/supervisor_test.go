package chaining

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/services/lifecycle"
	"github.com/lidofinance/govtx/client/types"
)

type testSource struct {
	listeners []lifecycle.Listener
}

func (s *testSource) OnEvent(l lifecycle.Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *testSource) emit(event *types.TxEvent) {
	for _, l := range s.listeners {
		l(event)
	}
}

func newTestSupervisor() (*Supervisor, *metrics.Metrics) {
	m := metrics.New()
	return NewSupervisor(m, logger.NewLoggerWithOutput("test", io.Discard, logrus.InfoLevel)), m
}

func TestSupervisor_FiresOncePerAttempt(t *testing.T) {
	req := require.New(t)
	s, m := newTestSupervisor()

	source := &testSource{}
	var triggered int
	s.Link(source, types.StepReferendum, types.StepDecision, func(context.Context) error {
		triggered++
		return nil
	})

	for _, eventType := range []types.TxEventType{types.TxEventSigned, types.TxEventBroadcasted, types.TxEventInBlock} {
		source.emit(&types.TxEvent{Type: eventType, AttemptID: "a1"})
	}
	req.Equal(0, triggered)

	done := &types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a1", Ok: true}
	source.emit(done)
	source.emit(done)
	source.emit(&types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a1", Ok: true})
	req.Equal(1, triggered)
	req.True(s.Fired(types.StepReferendum, "a1"))

	// a later attempt of the same step is a new submission instance
	source.emit(&types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a2", Ok: true})
	req.Equal(2, triggered)

	req.Equal(float64(2), testutil.ToFloat64(m.ChainTriggers.WithLabelValues("ref", "decision")))
}

func TestSupervisor_FailedFinalizationNeverFires(t *testing.T) {
	req := require.New(t)
	s, _ := newTestSupervisor()

	source := &testSource{}
	var triggered int
	s.Link(source, types.StepBounty, types.StepReferendum, func(context.Context) error {
		triggered++
		return nil
	})

	source.emit(&types.TxEvent{
		Type:      types.TxEventFinalized,
		AttemptID: "a1",
		Err:       types.NewTxError(types.ErrDispatchError, "Bounties.InsufficientProposersBalance"),
	})
	source.emit(&types.TxEvent{
		Type:      types.TxEventError,
		AttemptID: "a2",
		Err:       types.NewTxError(types.ErrBroadcastFailed, ""),
	})
	req.Equal(0, triggered)
	req.False(s.Fired(types.StepBounty, "a1"))
}

func TestSupervisor_TriggerErrorDoesNotRefire(t *testing.T) {
	req := require.New(t)
	s, _ := newTestSupervisor()

	source := &testSource{}
	var triggered int
	s.Link(source, types.StepBounty, types.StepReferendum, func(context.Context) error {
		triggered++
		return errors.New("bounty could not be found")
	})

	done := &types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a1", Ok: true}
	source.emit(done)
	source.emit(done)
	req.Equal(1, triggered)
}

func TestSupervisor_RetriesPendingDependency(t *testing.T) {
	req := require.New(t)
	s, m := newTestSupervisor()
	s.SetRetryInterval(10*time.Millisecond, 20*time.Millisecond)
	defer s.Stop()

	source := &testSource{}
	var triggered int32
	s.Link(source, types.StepBounty, types.StepReferendum, func(context.Context) error {
		if atomic.AddInt32(&triggered, 1) < 4 {
			return fmt.Errorf("%w: currency rate", types.ErrPendingDependency)
		}
		return nil
	})

	done := &types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a1", Ok: true}
	source.emit(done)
	req.True(s.Pending(types.StepBounty, "a1"))
	// the finalize event observed again does not start a second retry loop
	source.emit(done)

	req.Eventually(func() bool {
		return !s.Pending(types.StepBounty, "a1")
	}, time.Second, 5*time.Millisecond)
	req.Equal(int32(4), atomic.LoadInt32(&triggered))

	time.Sleep(50 * time.Millisecond)
	req.Equal(int32(4), atomic.LoadInt32(&triggered))
	req.Equal(float64(1), testutil.ToFloat64(m.ChainTriggers.WithLabelValues("bounty", "ref")))
}

func TestSupervisor_RetryStopsOnOtherError(t *testing.T) {
	req := require.New(t)
	s, _ := newTestSupervisor()
	s.SetRetryInterval(5*time.Millisecond, 5*time.Millisecond)
	defer s.Stop()

	source := &testSource{}
	var triggered int32
	s.Link(source, types.StepReferendum, types.StepDecision, func(context.Context) error {
		if atomic.AddInt32(&triggered, 1) == 1 {
			return fmt.Errorf("%w: referendum index", types.ErrPendingDependency)
		}
		return types.ErrNotFound
	})

	source.emit(&types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a1", Ok: true})
	req.Eventually(func() bool {
		return !s.Pending(types.StepReferendum, "a1")
	}, time.Second, 5*time.Millisecond)
	req.Equal(int32(2), atomic.LoadInt32(&triggered))
}

func TestSupervisor_StopEndsRetries(t *testing.T) {
	req := require.New(t)
	s, _ := newTestSupervisor()
	s.SetRetryInterval(time.Hour, time.Hour)

	source := &testSource{}
	s.Link(source, types.StepBounty, types.StepReferendum, func(context.Context) error {
		return types.ErrPendingDependency
	})
	source.emit(&types.TxEvent{Type: types.TxEventFinalized, AttemptID: "a1", Ok: true})
	req.True(s.Pending(types.StepBounty, "a1"))

	s.Stop()
	req.False(s.Pending(types.StepBounty, "a1"))
}
