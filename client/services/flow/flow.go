package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/lidofinance/govtx/client/repositories/attempt"
	"github.com/lidofinance/govtx/client/services/descriptor"
	"github.com/lidofinance/govtx/client/services/estimator"
	"github.com/lidofinance/govtx/client/services/lifecycle"
	"github.com/lidofinance/govtx/client/services/sequencer"
	"github.com/lidofinance/govtx/client/types"
)

var ErrStepDone = errors.New("step is already done")

// Flow is a running submission flow: the form snapshot, one tracker per
// step and the values extracted from finalized steps.
type Flow struct {
	service  *Service
	steps    []types.StepTag
	trackers map[types.StepTag]*lifecycle.Tracker
	// descriptors caches built descriptors for a short time, the reads they
	// are built from (rate, balances) keep changing
	descriptors *cache.Cache

	mu        sync.Mutex
	record    *types.FlowRecord
	fatal     map[types.StepTag]error
	bountyRef *descriptor.BountyRef
}

func newFlow(s *Service, record *types.FlowRecord) *Flow {
	f := &Flow{
		service:     s,
		steps:       record.Kind.Steps(),
		trackers:    make(map[types.StepTag]*lifecycle.Tracker),
		descriptors: cache.New(s.descriptorTTL, 2*s.descriptorTTL),
		record:      record,
		fatal:       make(map[types.StepTag]error),
	}
	if f.record.Attempts == nil {
		f.record.Attempts = make(map[types.StepTag]string)
	}

	for _, tag := range f.steps {
		f.trackers[tag] = lifecycle.NewTracker(record.ID, tag, s.trackerDeps)
	}
	for i := 0; i+1 < len(f.steps); i++ {
		next := f.steps[i+1]
		s.supervisor.Link(f.trackers[f.steps[i]], f.steps[i], next, func(ctx context.Context) error {
			return f.chain(ctx, next)
		})
	}
	return f
}

func (f *Flow) ID() string {
	return f.record.ID
}

func (f *Flow) Kind() types.FlowKind {
	return f.record.Kind
}

func (f *Flow) Steps() []types.StepTag {
	return append([]types.StepTag(nil), f.steps...)
}

// Record returns a copy of the persisted flow
func (f *Flow) Record() types.FlowRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	record := *f.record
	record.Attempts = make(map[types.StepTag]string, len(f.record.Attempts))
	for tag, id := range f.record.Attempts {
		record.Attempts[tag] = id
	}
	return record
}

// Latest returns the last event of the current attempt of the step
func (f *Flow) Latest(tag types.StepTag) (*types.TxEvent, error) {
	tracker, ok := f.trackers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownStep, tag)
	}
	return tracker.Latest(), nil
}

// ActiveStep classifies every step and reduces them to the one to show
func (f *Flow) ActiveStep(ctx context.Context) types.ActiveStep {
	states := make([]types.StepState, len(f.steps))
	for i, tag := range f.steps {
		latest := f.trackers[tag].Latest()

		var (
			d   *types.TxDescriptor
			err error
		)
		if !latest.IsDone() {
			d, err = f.descriptor(ctx, tag)
		}
		states[i] = sequencer.Classify(tag, d, err, latest)
	}
	return sequencer.Reduce(states, sequencer.ReferendumIndex)
}

// ReferendumIndex is known once the referendum creating step is finalized
func (f *Flow) ReferendumIndex() (*uint32, error) {
	latest := f.trackers[f.referendumStep()].Latest()
	if !latest.IsDone() {
		return nil, nil
	}
	index, ok := latest.Payload.ReferendumIndex()
	if !ok {
		return nil, fmt.Errorf("%w: no Referenda.Submitted event in the finalized block", types.ErrNotFound)
	}
	return &index, nil
}

// Submit starts a new attempt of the step. The first submit of a flow is
// refused when the signer cannot cover the cost estimate.
func (f *Flow) Submit(ctx context.Context, tag types.StepTag) (string, error) {
	if _, ok := f.trackers[tag]; !ok {
		return "", fmt.Errorf("%w: %s", types.ErrUnknownStep, tag)
	}

	f.mu.Lock()
	first := len(f.record.Attempts) == 0
	f.mu.Unlock()
	if first {
		if err := f.checkBalance(ctx); err != nil {
			return "", err
		}
	}
	return f.submit(ctx, tag)
}

func (f *Flow) submit(ctx context.Context, tag types.StepTag) (string, error) {
	tracker := f.trackers[tag]
	if tracker.Latest().IsDone() {
		return "", fmt.Errorf("%w: %s", ErrStepDone, tag)
	}

	d, err := f.descriptor(ctx, tag)
	if err != nil {
		return "", err
	}
	f.descriptors.Delete(string(tag))

	attemptID, err := tracker.Submit(ctx, d)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.record.Attempts[tag] = attemptID
	err = f.service.deps.Flows.UpdateFlow(f.record)
	f.mu.Unlock()
	if err != nil {
		f.service.logger.Error(err, "failed to save attempt %s of flow %s", attemptID, f.record.ID)
	}
	return attemptID, nil
}

// chain submits a dependent step unless it already has a live or finished
// attempt, e.g. one submitted by hand while the trigger waited
func (f *Flow) chain(ctx context.Context, tag types.StepTag) error {
	if latest := f.trackers[tag].Latest(); latest != nil && (!latest.IsTerminal() || latest.IsDone()) {
		f.service.logger.Log("step %s of flow %s is already submitted", tag, f.record.ID)
		return nil
	}
	_, err := f.submit(ctx, tag)
	return err
}

func (f *Flow) checkBalance(ctx context.Context) error {
	estimate, err := f.CostEstimate(ctx)
	if err != nil {
		return err
	}
	account, err := f.service.deps.Chain.Account(ctx, f.record.Signer)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	var free types.Balance
	if account != nil {
		free = account.Free
	}
	if !estimate.Covers(free) {
		return fmt.Errorf("%w: %s needed, %s available", types.ErrInsufficientBalance,
			estimate.Total(), free)
	}
	return nil
}

func (f *Flow) CostEstimate(ctx context.Context) (*types.CostEstimate, error) {
	return f.service.estimator.Estimate(ctx, f.estimateRequest())
}

// descriptor builds the transaction of the step. A missing on-chain entity
// is fatal for the step and remembered.
func (f *Flow) descriptor(ctx context.Context, tag types.StepTag) (*types.TxDescriptor, error) {
	f.mu.Lock()
	fatal := f.fatal[tag]
	f.mu.Unlock()
	if fatal != nil {
		return nil, fatal
	}
	if cached, ok := f.descriptors.Get(string(tag)); ok {
		return cached.(*types.TxDescriptor), nil
	}

	d, err := f.build(ctx, tag)
	if errors.Is(err, types.ErrNotFound) {
		f.service.logger.Error(err, "step %s of flow %s cannot be built", tag, f.record.ID)
		f.mu.Lock()
		f.fatal[tag] = err
		f.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}

	f.descriptors.SetDefault(string(tag), d)
	return d, nil
}

func (f *Flow) build(ctx context.Context, tag types.StepTag) (*types.TxDescriptor, error) {
	builder := f.service.builder
	record := f.record

	switch tag {
	case types.StepBounty:
		return builder.BountyCreation(ctx, *record.Rfp)
	case types.StepChildBounty:
		return builder.ChildBountyCreation(ctx, *record.Rfp)
	case types.StepTreasurySpend:
		return builder.TreasurySpend(ctx, *record.Rfp)
	case types.StepReferendum:
		if record.Kind == types.FlowTip {
			return builder.TipReferendumCreation(ctx, *record.Tip)
		}
		ref, err := f.lookupBounty(ctx)
		if err != nil {
			return nil, err
		}
		return builder.ReferendumCreation(ctx, *record.Rfp, ref)
	case types.StepDecision:
		prev := f.trackers[f.referendumStep()].Latest()
		if !prev.IsDone() {
			return nil, fmt.Errorf("%w: referendum is not created yet", types.ErrPendingDependency)
		}
		index, err := f.ReferendumIndex()
		if err != nil {
			return nil, err
		}
		return builder.DecisionDeposit(ctx, *index)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownStep, tag)
	}
}

// lookupBounty resolves the bounty created by the first step. A bounty flow
// without a finalized first step falls back to a proposed bounty with the
// same title.
func (f *Flow) lookupBounty(ctx context.Context) (*descriptor.BountyRef, error) {
	f.mu.Lock()
	ref := f.bountyRef
	f.mu.Unlock()
	if ref != nil {
		return ref, nil
	}

	first := f.steps[0]
	latest := f.trackers[first].Latest()

	var err error
	switch {
	case latest.IsDone() && first == types.StepChildBounty:
		ref, err = descriptor.LookupChildBounty(latest.Payload, f.record.Rfp.ParentBountyID)
	case latest.IsDone():
		ref, err = descriptor.LookupProposedBounty(latest.Payload)
	case first == types.StepBounty && (latest == nil || latest.IsCancelled()):
		ref, err = f.service.builder.FindExistingBounty(ctx, *f.record.Rfp)
		if errors.Is(err, types.ErrNotFound) {
			// nothing to resume, the bounty is not proposed yet
			return nil, fmt.Errorf("%w: bounty is not proposed yet", types.ErrPendingDependency)
		}
	default:
		return nil, fmt.Errorf("%w: bounty is not proposed yet", types.ErrPendingDependency)
	}
	if err != nil {
		return nil, err
	}

	f.service.logger.Log("flow %s uses bounty %d", f.record.ID, ref.ID)
	f.mu.Lock()
	f.bountyRef = ref
	f.mu.Unlock()
	return ref, nil
}

// BountyRef returns the resolved bounty of an RFP flow or nil
func (f *Flow) BountyRef() *descriptor.BountyRef {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.bountyRef
}

// referendumStep is the step whose finalization carries the referendum index
func (f *Flow) referendumStep() types.StepTag {
	if f.record.Kind == types.FlowMultisigRfp {
		return types.StepTreasurySpend
	}
	return types.StepReferendum
}

func (f *Flow) estimateRequest() estimator.Request {
	return estimator.Request{
		Kind:   f.record.Kind,
		Rfp:    f.record.Rfp,
		Tip:    f.record.Tip,
		Title:  f.record.Title,
		Signer: f.record.Signer,
	}
}

// restore makes the stored attempts current
func (f *Flow) restore() error {
	for tag, attemptID := range f.record.Attempts {
		tracker, ok := f.trackers[tag]
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownStep, tag)
		}
		record, err := f.service.deps.Attempts.GetAttempt(f.record.ID, attemptID)
		if errors.Is(err, attempt.ErrAttemptNotFound) {
			// the daemon stopped before the first event, the step has no lifecycle
			f.service.logger.Warn("attempt %s of step %s has no events", attemptID, tag)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load attempt %s of step %s: %w", attemptID, tag, err)
		}
		if err := tracker.Restore(record); err != nil {
			return err
		}
	}
	return nil
}

// isLive reports whether any step waits for chain events
func (f *Flow) isLive() bool {
	for _, tracker := range f.trackers {
		if latest := tracker.Latest(); latest != nil && !latest.IsTerminal() {
			return true
		}
	}
	return false
}
