package estimator

import (
	"context"
	"fmt"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/pkg/utils"
)

// Request is the flow an estimate is asked for
type Request struct {
	Kind   types.FlowKind
	Rfp    *types.RfpForm
	Tip    *types.TipForm
	Title  string
	Signer string
}

type Estimator struct {
	chain   chain.Client
	rates   rate.Provider
	network types.Network
	logger  logger.Logger
}

func NewEstimator(client chain.Client, rates rate.Provider, network types.Network, l logger.Logger) *Estimator {
	return &Estimator{
		chain:   client,
		rates:   rates,
		network: network,
		logger:  l,
	}
}

// Estimate sums the deposits reserved by the flow. Fees are not computed and
// reported as zero with FeesApproximated set. Unresolved reads return
// ErrPendingDependency.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*types.CostEstimate, error) {
	track, fixed, err := e.flowDeposits(ctx, req)
	if err != nil {
		return nil, err
	}

	decisionDeposit, err := e.chain.DecisionDeposit(ctx, track.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	constants, err := e.chain.Constants(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}

	estimate := &types.CostEstimate{
		Deposits:         decisionDeposit.Add(constants.SubmissionDeposit).Add(fixed),
		Fees:             types.Balance{},
		FeesApproximated: true,
	}
	e.logger.Debug("estimated %s flow on track %s: deposits %s", req.Kind, track.Name,
		utils.FormatToken(estimate.Deposits, e.network))

	return estimate, nil
}

// flowDeposits returns the referendum track and the deposits specific to the flow kind
func (e *Estimator) flowDeposits(ctx context.Context, req Request) (types.Track, types.Balance, error) {
	var none types.Balance

	switch req.Kind {
	case types.FlowTip:
		if req.Tip == nil {
			return types.Track{}, none, fmt.Errorf("tip flow requires a tip form")
		}
		track, err := TipperTrack(e.network, req.Tip.TipperTrack)
		return track, none, err
	case types.FlowBountyRfp, types.FlowChildBountyRfp, types.FlowMultisigRfp:
		if req.Rfp == nil {
			return types.Track{}, none, fmt.Errorf("%s flow requires an rfp form", req.Kind)
		}
	default:
		return types.Track{}, none, fmt.Errorf("%w: %s", types.ErrUnknownFlow, req.Kind)
	}

	rate, err := e.rates.Rate(ctx)
	if err != nil {
		return types.Track{}, none, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	value, err := BountyValue(*req.Rfp, rate, e.network)
	if err != nil {
		return types.Track{}, none, err
	}
	track := SelectSpenderTrack(e.network, value)

	if req.Kind != types.FlowBountyRfp {
		return track, none, nil
	}

	constants, err := e.chain.Constants(ctx)
	if err != nil {
		return types.Track{}, none, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	title := req.Title
	if title == "" {
		title = req.Rfp.ProjectTitle
	}
	fixed := constants.BountyDeposit(title)

	plan, err := PlanMultisig(ctx, e.chain, e.network, *req.Rfp, req.Signer)
	if err != nil {
		return types.Track{}, none, err
	}
	if plan != nil && plan.Indexing && plan.SignerIsSupervisor() {
		fixed = fixed.Add(plan.Deposit)
	}

	return track, fixed, nil
}
