package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/metrics"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/modules/ss58"
	"github.com/lidofinance/govtx/client/repositories/attempt"
	flowrepo "github.com/lidofinance/govtx/client/repositories/flow"
	"github.com/lidofinance/govtx/client/services/chaining"
	"github.com/lidofinance/govtx/client/services/descriptor"
	"github.com/lidofinance/govtx/client/services/estimator"
	"github.com/lidofinance/govtx/client/services/lifecycle"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/pkg/utils"
	"github.com/lidofinance/govtx/storage"
)

const DefaultDescriptorTTL = 6 * time.Second

var (
	ErrInvalidForm = errors.New("invalid form")
	ErrFlowIsLive  = errors.New("flow has a live attempt")
)

type Deps struct {
	Chain    chain.Client
	Rates    rate.Provider
	Network  types.Network
	Signer   lifecycle.Signer
	Journal  storage.Storage
	Flows    flowrepo.FlowRepo
	Attempts attempt.AttemptRepo
	Metrics  *metrics.Metrics
	Logger   logger.Logger
	// DescriptorTTL bounds the reuse of a built descriptor, zero means DefaultDescriptorTTL
	DescriptorTTL time.Duration
}

// Service creates, resumes and drives submission flows
type Service struct {
	deps          Deps
	logger        logger.Logger
	builder       *descriptor.Builder
	estimator     *estimator.Estimator
	supervisor    *chaining.Supervisor
	trackerDeps   lifecycle.Deps
	descriptorTTL time.Duration

	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewService(deps Deps) *Service {
	ttl := deps.DescriptorTTL
	if ttl <= 0 {
		ttl = DefaultDescriptorTTL
	}
	l := deps.Logger

	return &Service{
		deps:       deps,
		logger:     l,
		builder:    descriptor.NewBuilder(deps.Chain, deps.Rates, deps.Network, deps.Signer.Address(), l),
		estimator:  estimator.NewEstimator(deps.Chain, deps.Rates, deps.Network, l),
		supervisor: chaining.NewSupervisor(deps.Metrics, l),
		trackerDeps: lifecycle.Deps{
			Chain:    deps.Chain,
			Signer:   deps.Signer,
			Journal:  deps.Journal,
			Attempts: deps.Attempts,
			Metrics:  deps.Metrics,
			Logger:   l,
		},
		descriptorTTL: ttl,
		flows:         make(map[string]*Flow),
	}
}

// Supervisor exposes the auto-chaining state
func (s *Service) Supervisor() *chaining.Supervisor {
	return s.supervisor
}

// Stop ends the pending auto-chaining retries
func (s *Service) Stop() {
	s.supervisor.Stop()
}

// CreateRfpFlow snapshots the form into a new flow. An empty kind is derived
// from the form: child RFPs add a child bounty, stablecoin funding goes
// through a treasury spend, everything else proposes a bounty.
func (s *Service) CreateRfpFlow(ctx context.Context, form types.RfpForm, kind types.FlowKind) (*Flow, error) {
	if kind == "" {
		kind = s.rfpKind(form)
	}
	if err := s.validateRfp(form, kind); err != nil {
		return nil, err
	}

	title, err := s.NextRfpTitle(ctx, form.ProjectTitle)
	if err != nil {
		return nil, err
	}
	snapshot := form.Clone()
	snapshot.ProjectTitle = title

	return s.create(&types.FlowRecord{
		Kind:  kind,
		Title: snapshot.ProjectTitle,
		Rfp:   &snapshot,
	})
}

// NextRfpTitle numbers the project title after the RFPs already on chain
func (s *Service) NextRfpTitle(ctx context.Context, projectTitle string) (string, error) {
	bounties, err := s.deps.Chain.Bounties(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	titles := make([]string, 0, len(bounties))
	for _, b := range bounties {
		titles = append(titles, b.Description)
	}
	return utils.FormatRfpTitle(s.deps.Network.Symbol, utils.NextRfpNumber(titles), projectTitle), nil
}

// CreateTipFlow snapshots the tip form into a new flow, the tipper track is
// selected from the current rate when the form does not carry one
func (s *Service) CreateTipFlow(ctx context.Context, form types.TipForm) (*Flow, error) {
	if err := s.validateTip(form); err != nil {
		return nil, err
	}

	snapshot := form.Clone()
	if snapshot.TipperTrack == "" {
		r, err := s.deps.Rates.Rate(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
		}
		track, err := estimator.SelectTipperTrack(s.deps.Network, form.TipAmount, r)
		if err != nil {
			return nil, err
		}
		snapshot.TipperTrack = track
	}
	if _, err := estimator.TipperTrack(s.deps.Network, snapshot.TipperTrack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	return s.create(&types.FlowRecord{
		Kind: types.FlowTip,
		Tip:  &snapshot,
	})
}

func (s *Service) create(record *types.FlowRecord) (*Flow, error) {
	now := time.Now().UTC()
	record.ID = uuid.New().String()
	record.Network = s.deps.Network.Name
	record.Signer = s.deps.Signer.Address()
	record.Attempts = make(map[types.StepTag]string)
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.deps.Flows.PutFlow(record); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.FlowsCreated.WithLabelValues(string(record.Kind)).Inc()
	}

	f := newFlow(s, record)
	s.mu.Lock()
	s.flows[record.ID] = f
	s.mu.Unlock()

	s.logger.Log("created %s flow %s", record.Kind, record.ID)
	return f, nil
}

func (s *Service) rfpKind(form types.RfpForm) types.FlowKind {
	switch {
	case form.IsChildRfp:
		return types.FlowChildBountyRfp
	case !s.deps.Network.IsNative(form.FundingCurrency):
		return types.FlowMultisigRfp
	default:
		return types.FlowBountyRfp
	}
}

func (s *Service) validateRfp(form types.RfpForm, kind types.FlowKind) error {
	switch kind {
	case types.FlowBountyRfp, types.FlowMultisigRfp:
		if form.IsChildRfp {
			return fmt.Errorf("%w: child rfp cannot use a %s flow", ErrInvalidForm, kind)
		}
	case types.FlowChildBountyRfp:
		if !form.IsChildRfp {
			return fmt.Errorf("%w: %s flow requires a child rfp", ErrInvalidForm, kind)
		}
	default:
		return fmt.Errorf("%w: %s", types.ErrUnknownFlow, kind)
	}

	if form.ProjectTitle == "" {
		return fmt.Errorf("%w: project title is empty", ErrInvalidForm)
	}
	if !form.PrizePool.IsPositive() {
		return fmt.Errorf("%w: prize pool must be positive", ErrInvalidForm)
	}
	if form.FindersFee.IsNegative() || form.SupervisorsFee.IsNegative() {
		return fmt.Errorf("%w: fees cannot be negative", ErrInvalidForm)
	}
	if len(form.Supervisors) == 0 {
		return fmt.Errorf("%w: rfp has no supervisors", ErrInvalidForm)
	}
	for _, supervisor := range form.Supervisors {
		if _, _, err := ss58.Decode(supervisor); err != nil {
			return fmt.Errorf("%w: supervisor %q: %v", ErrInvalidForm, supervisor, err)
		}
	}

	native := s.deps.Network.IsNative(form.FundingCurrency)
	if !native && kind != types.FlowMultisigRfp {
		return fmt.Errorf("%w: bounties are funded in %s only", ErrInvalidForm, s.deps.Network.Symbol)
	}
	if !native {
		if _, ok := s.deps.Network.Stablecoins[form.FundingCurrency]; !ok {
			return fmt.Errorf("%w: unsupported funding currency %s", ErrInvalidForm, form.FundingCurrency)
		}
	}
	return nil
}

func (s *Service) validateTip(form types.TipForm) error {
	if _, _, err := ss58.Decode(form.TipBeneficiary); err != nil {
		return fmt.Errorf("%w: tip beneficiary %q: %v", ErrInvalidForm, form.TipBeneficiary, err)
	}
	if !form.TipAmount.IsPositive() {
		return fmt.Errorf("%w: tip amount must be positive", ErrInvalidForm)
	}
	if form.ReferralFeePercent < 0 || form.ReferralFeePercent > 100 {
		return fmt.Errorf("%w: referral fee percent must be within 0..100", ErrInvalidForm)
	}
	if form.Referral != "" {
		if _, _, err := ss58.Decode(form.Referral); err != nil {
			return fmt.Errorf("%w: referral %q: %v", ErrInvalidForm, form.Referral, err)
		}
	}
	return nil
}

// GetFlows returns the flows sorted by creation time
func (s *Service) GetFlows() []*Flow {
	s.mu.RLock()
	flows := make([]*Flow, 0, len(s.flows))
	for _, f := range s.flows {
		flows = append(flows, f)
	}
	s.mu.RUnlock()

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].record.CreatedAt.Before(flows[j].record.CreatedAt)
	})
	return flows
}

func (s *Service) GetFlow(flowID string) (*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flows[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", flowrepo.ErrFlowNotFound, flowID)
	}
	return f, nil
}

func (s *Service) ActiveStep(ctx context.Context, flowID string) (types.ActiveStep, error) {
	f, err := s.GetFlow(flowID)
	if err != nil {
		return types.ActiveStep{}, err
	}
	return f.ActiveStep(ctx), nil
}

func (s *Service) CostEstimate(ctx context.Context, flowID string) (*types.CostEstimate, error) {
	f, err := s.GetFlow(flowID)
	if err != nil {
		return nil, err
	}
	return f.CostEstimate(ctx)
}

func (s *Service) Submit(ctx context.Context, flowID string, tag types.StepTag) (string, error) {
	f, err := s.GetFlow(flowID)
	if err != nil {
		return "", err
	}
	return f.Submit(ctx, tag)
}

func (s *Service) ReferendumIndex(flowID string) (*uint32, error) {
	f, err := s.GetFlow(flowID)
	if err != nil {
		return nil, err
	}
	return f.ReferendumIndex()
}

// Attempts returns every stored attempt of the flow, current or superseded
func (s *Service) Attempts(flowID string) ([]*types.AttemptRecord, error) {
	if _, err := s.GetFlow(flowID); err != nil {
		return nil, err
	}
	return s.deps.Attempts.GetAttempts(flowID)
}

// DeleteFlow forgets a flow. Flows waiting for chain events are kept.
func (s *Service) DeleteFlow(flowID string) error {
	f, err := s.GetFlow(flowID)
	if err != nil {
		return err
	}
	if f.isLive() {
		return fmt.Errorf("%w: %s", ErrFlowIsLive, flowID)
	}
	if err := s.deps.Flows.DeleteFlow(flowID); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	s.mu.Lock()
	delete(s.flows, flowID)
	s.mu.Unlock()

	s.logger.Log("deleted flow %s", flowID)
	return nil
}

// Resume reloads the stored flows and their current attempts. Attempts that
// were live when the daemon stopped are failed and can be re-submitted.
func (s *Service) Resume(_ context.Context) error {
	records, err := s.deps.Flows.GetFlows()
	if err != nil {
		return fmt.Errorf("failed to get flows: %w", err)
	}

	resumed := 0
	for _, record := range records {
		if record.Network != s.deps.Network.Name {
			s.logger.Warn("skipping flow %s of network %s", record.ID, record.Network)
			continue
		}
		f := newFlow(s, record)
		if err := f.restore(); err != nil {
			s.logger.Error(err, "failed to restore flow %s", record.ID)
			continue
		}

		s.mu.Lock()
		s.flows[record.ID] = f
		s.mu.Unlock()
		resumed++
	}

	s.logger.Log("resumed %d flows", resumed)
	return nil
}
