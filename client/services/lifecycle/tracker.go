package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/repositories/attempt"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/fsm/state_machines/tx_lifecycle_fsm"
	"github.com/lidofinance/govtx/storage"
)

// StaleEventPrefix marks journalled events of superseded attempts
const StaleEventPrefix = "stale_"

// Signer signs extrinsic payloads and journal records
type Signer interface {
	Address() string
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}

// Listener is called for every accepted event of the current attempt
type Listener func(event *types.TxEvent)

// Deps are shared by all trackers of a daemon. Journal, Attempts and
// Metrics are optional.
type Deps struct {
	Chain    chain.Client
	Signer   Signer
	Journal  storage.Storage
	Attempts attempt.AttemptRepo
	Metrics  *metrics.Metrics
	Logger   logger.Logger
}

// Tracker runs submission attempts of a single flow step. At most one
// attempt is live: a new Submit cancels the previous one and its later
// events are dropped.
type Tracker struct {
	flowID string
	step   types.StepTag
	deps   Deps
	logger logger.Logger

	mu      sync.Mutex
	current *tx_lifecycle_fsm.TxLifecycleFSM
	cancel  context.CancelFunc
	// queue holds accepted events in acceptance order until they are dispatched
	queue []*types.TxEvent

	// dispatchMu is held by the goroutine delivering the queue
	dispatchMu  sync.Mutex
	listenersMu sync.RWMutex
	listeners   []Listener
}

func NewTracker(flowID string, step types.StepTag, deps Deps) *Tracker {
	return &Tracker{
		flowID: flowID,
		step:   step,
		deps:   deps,
		logger: deps.Logger.WithField("step", string(step)),
	}
}

func (t *Tracker) Step() types.StepTag {
	return t.step
}

// OnEvent registers a listener, listeners are invoked in registration order
func (t *Tracker) OnEvent(l Listener) {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	t.listeners = append(t.listeners, l)
}

// Latest returns the last event of the current attempt, nil without attempts
func (t *Tracker) Latest() *types.TxEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return nil
	}
	return t.current.Latest()
}

// AttemptID returns the id of the current attempt or an empty string
func (t *Tracker) AttemptID() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return ""
	}
	return t.current.AttemptID()
}

// Submit starts a new attempt for the descriptor and returns its id.
// The attempt is not bound to ctx, it runs until a terminal event.
func (t *Tracker) Submit(ctx context.Context, descriptor *types.TxDescriptor) (string, error) {
	if descriptor == nil || descriptor.Call == nil {
		return "", fmt.Errorf("%w: transaction of step %s", types.ErrPendingDependency, t.step)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	attemptID := uuid.New().String()
	machine := tx_lifecycle_fsm.New(attemptID)
	attemptCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	prev, prevCancel := t.current, t.cancel
	t.current, t.cancel = machine, cancel

	if prev != nil {
		if prevCancel != nil {
			prevCancel()
		}
		if prev.IsLive() {
			if cancelled, err := prev.Cancel(t.step); err != nil {
				t.logger.Warn("failed to cancel attempt %s: %v", prev.AttemptID(), err)
			} else {
				t.queue = append(t.queue, cancelled)
			}
		}
	}
	t.mu.Unlock()
	t.drain()

	t.logger.Log("submitting attempt %s: %s", attemptID, descriptor.Call.Name())
	go t.run(attemptCtx, machine, descriptor)

	return attemptID, nil
}

// Restore makes a stored attempt current. An attempt that was still live
// when the daemon stopped is failed, its status stream is lost.
func (t *Tracker) Restore(record *types.AttemptRecord) error {
	machine := tx_lifecycle_fsm.New(record.ID)
	if err := machine.Replay(record.Events); err != nil {
		return fmt.Errorf("failed to replay attempt %s: %w", record.ID, err)
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.current, t.cancel = machine, nil
	t.mu.Unlock()

	if machine.IsLive() {
		t.logger.Warn("attempt %s was interrupted, marking it as failed", record.ID)
		t.fail(machine, types.ErrBroadcastFailed, errors.New("attempt interrupted by daemon restart"))
	}
	return nil
}

func (t *Tracker) run(ctx context.Context, machine *tx_lifecycle_fsm.TxLifecycleFSM, descriptor *types.TxDescriptor) {
	signer := t.deps.Signer.Address()

	payload, err := t.deps.Chain.SigningPayload(ctx, signer, descriptor.Call)
	if err != nil {
		t.fail(machine, types.ErrBroadcastFailed, err)
		return
	}
	signature, err := t.deps.Signer.Sign(ctx, payload)
	if err != nil {
		t.fail(machine, types.ErrSignerRejected, err)
		return
	}
	if !t.emit(machine, t.newEvent(machine, types.TxEventSigned)) {
		return
	}

	statuses, err := t.deps.Chain.SubmitAndWatch(ctx, &chain.SignedTx{
		Signer:    signer,
		Call:      descriptor.Call,
		Payload:   payload,
		Signature: signature,
	})
	if err != nil {
		t.fail(machine, types.ErrBroadcastFailed, err)
		return
	}

	for status := range statuses {
		event := t.eventFromStatus(machine, status)
		if !t.emit(machine, event) || event.IsTerminal() {
			return
		}
	}
	t.fail(machine, types.ErrBroadcastFailed, errors.New("status stream closed before finalization"))
}

func (t *Tracker) newEvent(machine *tx_lifecycle_fsm.TxLifecycleFSM, eventType types.TxEventType) *types.TxEvent {
	return &types.TxEvent{
		Type:      eventType,
		AttemptID: machine.AttemptID(),
		Step:      t.step,
		At:        time.Now().UTC(),
	}
}

func (t *Tracker) eventFromStatus(machine *tx_lifecycle_fsm.TxLifecycleFSM, status chain.TxStatus) *types.TxEvent {
	if status.Payload != nil && status.Payload.TxHash == "" {
		status.Payload.TxHash = status.TxHash
	}

	switch status.Type {
	case chain.StatusBroadcasted:
		return t.newEvent(machine, types.TxEventBroadcasted)
	case chain.StatusInBlock:
		event := t.newEvent(machine, types.TxEventInBlock)
		event.Finalized = status.Finalized
		event.Payload = status.Payload
		return event
	case chain.StatusFinalized:
		event := t.newEvent(machine, types.TxEventFinalized)
		event.Ok = status.Ok
		event.Payload = status.Payload
		if !status.Ok {
			detail := status.Error
			if status.Payload != nil && status.Payload.DispatchError != "" {
				detail = status.Payload.DispatchError
			}
			event.Err = types.NewTxError(types.ErrDispatchError, detail)
		}
		return event
	default:
		event := t.newEvent(machine, types.TxEventError)
		event.Err = types.NewTxError(types.ErrBroadcastFailed, status.Error)
		return event
	}
}

func (t *Tracker) fail(machine *tx_lifecycle_fsm.TxLifecycleFSM, kind error, cause error) {
	event := t.newEvent(machine, types.TxEventError)
	event.Err = types.NewTxError(kind, cause.Error())
	t.emit(machine, event)
}

// emit applies the event to its attempt and notifies the listeners. It
// returns false when the attempt is no longer current.
func (t *Tracker) emit(machine *tx_lifecycle_fsm.TxLifecycleFSM, event *types.TxEvent) bool {
	t.mu.Lock()
	if t.current != machine {
		t.mu.Unlock()
		t.logger.Debug("dropping %s of superseded attempt %s", event.Type, event.AttemptID)
		if t.deps.Journal != nil {
			if err := t.journal(event, StaleEventPrefix+string(event.Type)); err != nil {
				t.logger.Error(err, "failed to journal stale %s of attempt %s", event.Type, event.AttemptID)
			}
		}
		if t.deps.Metrics != nil {
			t.deps.Metrics.StaleTxEvents.WithLabelValues(string(t.step)).Inc()
		}
		return false
	}
	if err := machine.Apply(event); err != nil {
		t.mu.Unlock()
		t.logger.Error(err, "rejected %s of attempt %s", event.Type, event.AttemptID)
		return false
	}
	t.queue = append(t.queue, event)
	t.mu.Unlock()

	t.drain()
	return true
}

// drain delivers queued events one by one. When another goroutine (or a
// listener up the stack) is already delivering, it picks the new events up.
func (t *Tracker) drain() {
	for {
		if !t.dispatchMu.TryLock() {
			return
		}
		for event := t.dequeue(); event != nil; event = t.dequeue() {
			t.dispatch(event)
		}
		t.dispatchMu.Unlock()

		t.mu.Lock()
		empty := len(t.queue) == 0
		t.mu.Unlock()
		if empty {
			return
		}
	}
}

func (t *Tracker) dequeue() *types.TxEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 {
		return nil
	}
	event := t.queue[0]
	t.queue = t.queue[1:]
	return event
}

func (t *Tracker) dispatch(event *types.TxEvent) {
	t.record(event)

	t.listenersMu.RLock()
	listeners := append([]Listener(nil), t.listeners...)
	t.listenersMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}

// record journals, persists and counts an accepted event
func (t *Tracker) record(event *types.TxEvent) {
	if event.Err != nil {
		t.logger.Warn("attempt %s: %s", event.AttemptID, event.Err)
	} else {
		t.logger.Debug("attempt %s: %s", event.AttemptID, event.Type)
	}

	if t.deps.Metrics != nil {
		t.deps.Metrics.TxEvents.WithLabelValues(string(t.step), string(event.Type)).Inc()
	}

	if t.deps.Attempts != nil {
		if err := t.deps.Attempts.AppendEvent(t.flowID, event); err != nil {
			t.logger.Error(err, "failed to persist %s of attempt %s", event.Type, event.AttemptID)
		}
	}

	if t.deps.Journal != nil {
		if err := t.journal(event, string(event.Type)); err != nil {
			t.logger.Error(err, "failed to journal %s of attempt %s", event.Type, event.AttemptID)
		}
	}
}

func (t *Tracker) journal(event *types.TxEvent, name string) error {
	msg, err := storage.NewMessage(t.flowID, string(t.step), name, event)
	if err != nil {
		return err
	}
	msg.Signer = t.deps.Signer.Address()
	if msg.Signature, err = t.deps.Signer.Sign(context.Background(), msg.SigBytes()); err != nil {
		return fmt.Errorf("failed to sign journal message: %w", err)
	}
	return t.deps.Journal.Send(msg)
}
