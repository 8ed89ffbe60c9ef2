package chaining

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/services/lifecycle"
	"github.com/lidofinance/govtx/client/types"
)

const (
	DefaultRetryInterval    = time.Second
	DefaultMaxRetryInterval = 30 * time.Second
)

// Source is a step lifecycle that can be observed
type Source interface {
	OnEvent(l lifecycle.Listener)
}

// Trigger submits the dependent step
type Trigger func(ctx context.Context) error

// Supervisor advances flows: a dependent step is submitted once per attempt
// of its prerequisite, on that attempt's transition into Finalized{ok:true}.
// A trigger failing on a pending dependency is retried with backoff until it
// succeeds, fails otherwise or the supervisor is stopped.
type Supervisor struct {
	metrics *metrics.Metrics
	logger  logger.Logger

	retryInterval    time.Duration
	maxRetryInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	fired   map[string]struct{}
	pending map[string]struct{}
}

func NewSupervisor(m *metrics.Metrics, l logger.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		metrics:          m,
		logger:           l,
		retryInterval:    DefaultRetryInterval,
		maxRetryInterval: DefaultMaxRetryInterval,
		ctx:              ctx,
		cancel:           cancel,
		fired:            make(map[string]struct{}),
		pending:          make(map[string]struct{}),
	}
}

// SetRetryInterval sets the first retry delay and its upper bound, the delay
// doubles after every pending attempt
func (s *Supervisor) SetRetryInterval(interval, max time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retryInterval = interval
	s.maxRetryInterval = max
}

func (s *Supervisor) Link(from Source, fromTag, toTag types.StepTag, trigger Trigger) {
	from.OnEvent(func(event *types.TxEvent) {
		if !event.IsDone() || !s.markFired(fromTag, event.AttemptID) {
			return
		}

		s.logger.Log("%s finalized in attempt %s, submitting %s", fromTag, event.AttemptID, toTag)
		if s.metrics != nil {
			s.metrics.ChainTriggers.WithLabelValues(string(fromTag), string(toTag)).Inc()
		}
		err := trigger(s.ctx)
		if errors.Is(err, types.ErrPendingDependency) {
			s.retry(fromTag, toTag, event.AttemptID, trigger, err)
			return
		}
		if err != nil {
			s.logger.Error(err, "failed to submit %s after %s", toTag, fromTag)
		}
	})
}

func (s *Supervisor) retry(fromTag, toTag types.StepTag, attemptID string, trigger Trigger, cause error) {
	key := firedKey(fromTag, attemptID)

	s.mu.Lock()
	s.pending[key] = struct{}{}
	interval, max := s.retryInterval, s.maxRetryInterval
	s.mu.Unlock()

	s.logger.Warn("%s is waiting for a dependency, retrying in %s: %v", toTag, interval, cause)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.clearPending(key)

		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
			}

			err := trigger(s.ctx)
			switch {
			case err == nil:
				s.logger.Log("submitted %s after %s in attempt %s", toTag, fromTag, attemptID)
				return
			case errors.Is(err, types.ErrPendingDependency):
				s.logger.Debug("%s is still waiting for a dependency: %v", toTag, err)
			default:
				s.logger.Error(err, "failed to submit %s after %s", toTag, fromTag)
				return
			}

			if interval *= 2; interval > max {
				interval = max
			}
			timer.Reset(interval)
		}
	}()
}

// Fired reports whether the attempt already triggered its dependent step
func (s *Supervisor) Fired(fromTag types.StepTag, attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.fired[firedKey(fromTag, attemptID)]
	return ok
}

// Pending reports whether the dependent step of the attempt is being retried
func (s *Supervisor) Pending(fromTag types.StepTag, attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[firedKey(fromTag, attemptID)]
	return ok
}

// Stop ends the retries and waits for them to return
func (s *Supervisor) Stop() {
	s.cancel()
	s.wg.Wait()
}

// markFired returns false when the attempt has fired before
func (s *Supervisor) markFired(fromTag types.StepTag, attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := firedKey(fromTag, attemptID)
	if _, ok := s.fired[key]; ok {
		return false
	}
	s.fired[key] = struct{}{}
	return true
}

func (s *Supervisor) clearPending(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
}

func firedKey(fromTag types.StepTag, attemptID string) string {
	return string(fromTag) + "/" + attemptID
}
