package descriptor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/services/estimator"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/pkg/utils"
)

// RemarkText is attached to every proposed bounty
const RemarkText = "Unused funds from the bounty will be returned to the treasury"

// Weight is the max_weight argument of multisig calls
type Weight struct {
	RefTime   uint64 `json:"ref_time"`
	ProofSize uint64 `json:"proof_size"`
}

// BountyRef points at the bounty created by the first step of an RFP flow
type BountyRef struct {
	ID uint32 `json:"id"`
	// ChildID is set for child bounties, ID is the parent then
	ChildID           *uint32          `json:"childId,omitempty"`
	MultisigTimepoint *types.Timepoint `json:"multisigTimepoint,omitempty"`
}

// Builder turns form snapshots and chain reads into unsigned calls with explanations.
// Every unresolved read is reported as ErrPendingDependency.
type Builder struct {
	chain   chain.Client
	rates   rate.Provider
	network types.Network
	signer  string
	logger  logger.Logger
}

func NewBuilder(client chain.Client, rates rate.Provider, network types.Network, signer string, l logger.Logger) *Builder {
	return &Builder{
		chain:   client,
		rates:   rates,
		network: network,
		signer:  signer,
		logger:  l,
	}
}

func (b *Builder) rate(ctx context.Context) (decimal.Decimal, error) {
	r, err := b.rates.Rate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	return r, nil
}

func (b *Builder) format(value types.Balance) string {
	return utils.FormatToken(value, b.network)
}

func beneficiary(address string) types.Enum {
	return types.Enum{Type: "Id", Value: address}
}

// BountyCreation proposes the bounty, adds the remark and, when the curator
// multisig has to be indexed, the approve_as_multi call.
func (b *Builder) BountyCreation(ctx context.Context, form types.RfpForm) (*types.TxDescriptor, error) {
	r, err := b.rate(ctx)
	if err != nil {
		return nil, err
	}
	value, err := estimator.BountyValue(form, r, b.network)
	if err != nil {
		return nil, err
	}

	calls := []*types.Call{
		types.NewCall("Bounties", "propose_bounty",
			types.NewArg("value", value),
			types.NewArg("description", types.Bytes(form.ProjectTitle)),
		),
		types.NewCall("System", "remark_with_event",
			types.NewArg("remark", types.Bytes(RemarkText)),
		),
	}
	explanations := []*types.TxExplanation{
		types.NewExplanation("Propose bounty").
			With("title", form.ProjectTitle).
			With("value", b.format(value)),
		types.NewExplanation("Remark").
			With("text", RemarkText),
	}

	call, explanation, err := b.multisigIndexing(ctx, form)
	if err != nil {
		return nil, err
	}
	if call != nil {
		calls = append(calls, call)
		explanations = append(explanations, explanation)
	}

	return &types.TxDescriptor{
		Call:        types.Batch(calls...),
		Explanation: types.BatchExplanation(explanations...),
	}, nil
}

// multisigIndexing returns nil when no approval has to be added to the bounty batch
func (b *Builder) multisigIndexing(ctx context.Context, form types.RfpForm) (*types.Call, *types.TxExplanation, error) {
	plan, err := estimator.PlanMultisig(ctx, b.chain, b.network, form, b.signer)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case plan == nil:
		return nil, nil, nil
	case !plan.Indexing:
		b.logger.Debug("multisig %s is already indexed or the signer cannot afford %s, skipping",
			plan.Address, b.format(plan.Deposit))
		return nil, nil, nil
	case !plan.SignerIsSupervisor():
		b.logger.Debug("signer %s is not a supervisor of %s, skipping multisig indexing", b.signer, plan.Address)
		return nil, nil, nil
	}

	call := types.NewCall("Multisig", "approve_as_multi",
		types.NewArg("threshold", plan.Threshold),
		types.NewArg("other_signatories", plan.OtherSignatories),
		types.NewArg("maybe_timepoint", nil),
		types.NewArg("call_hash", estimator.MultisigCreationHash),
		types.NewArg("max_weight", Weight{}),
	)
	explanation := types.NewExplanation("Multisig call to have the curator indexed").
		With("address", plan.Address)
	return call, explanation, nil
}

func (b *Builder) ChildBountyCreation(ctx context.Context, form types.RfpForm) (*types.TxDescriptor, error) {
	if !form.IsChildRfp {
		return nil, fmt.Errorf("rfp is not a child bounty rfp")
	}
	r, err := b.rate(ctx)
	if err != nil {
		return nil, err
	}
	value, err := estimator.BountyValue(form, r, b.network)
	if err != nil {
		return nil, err
	}

	parent := strconv.FormatUint(uint64(form.ParentBountyID), 10)
	return &types.TxDescriptor{
		Call: types.NewCall("ChildBounties", "add_child_bounty",
			types.NewArg("parent_bounty_id", form.ParentBountyID),
			types.NewArg("value", value),
			types.NewArg("description", types.Bytes(form.ProjectTitle)),
		),
		Explanation: types.NewExplanation("Add child bounty").
			With("parent", parent).
			With("title", form.ProjectTitle).
			With("value", b.format(value)),
	}, nil
}

// ReferendumCreation submits the curator assignment of the created bounty
// on the spender track matching the bounty value.
func (b *Builder) ReferendumCreation(ctx context.Context, form types.RfpForm, ref *BountyRef) (*types.TxDescriptor, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: bounty reference", types.ErrPendingDependency)
	}
	r, err := b.rate(ctx)
	if err != nil {
		return nil, err
	}
	value, err := estimator.BountyValue(form, r, b.network)
	if err != nil {
		return nil, err
	}
	fee, err := estimator.CuratorFee(form, r, b.network)
	if err != nil {
		return nil, err
	}
	curator, err := estimator.Curator(form, b.network)
	if err != nil {
		return nil, err
	}

	var (
		proposal            *types.Call
		proposalExplanation *types.TxExplanation
	)
	if ref.ChildID != nil {
		proposal = types.NewCall("ChildBounties", "propose_curator",
			types.NewArg("parent_bounty_id", ref.ID),
			types.NewArg("child_bounty_id", *ref.ChildID),
			types.NewArg("curator", beneficiary(curator)),
			types.NewArg("fee", fee),
		)
		proposalExplanation = types.NewExplanation("Propose child bounty curator").
			With("parent", strconv.FormatUint(uint64(ref.ID), 10)).
			With("child", strconv.FormatUint(uint64(*ref.ChildID), 10)).
			With("curator", curator).
			With("fee", b.format(fee))
	} else {
		proposal = types.NewCall("Bounties", "approve_bounty_with_curator",
			types.NewArg("bounty_id", ref.ID),
			types.NewArg("curator", beneficiary(curator)),
			types.NewArg("fee", fee),
		)
		proposalExplanation = types.NewExplanation("Approve bounty with curator").
			With("bounty", strconv.FormatUint(uint64(ref.ID), 10)).
			With("curator", curator).
			With("fee", b.format(fee))
	}

	track := estimator.SelectSpenderTrack(b.network, value)
	submit, err := b.submitReferendum(ctx, track, proposal, types.Enum{Type: "After", Value: uint32(0)})
	if err != nil {
		return nil, err
	}
	return &types.TxDescriptor{
		Call: submit,
		Explanation: types.NewExplanation("Referendum proposal").
			WithNode("call", proposalExplanation).
			With("track", track.Name),
	}, nil
}

// TreasurySpend proposes a spend of the RFP total to the curator. Native
// funding uses the buffered native value, stablecoins are paid in exact USD.
func (b *Builder) TreasurySpend(ctx context.Context, form types.RfpForm) (*types.TxDescriptor, error) {
	r, err := b.rate(ctx)
	if err != nil {
		return nil, err
	}
	value, err := estimator.BountyValue(form, r, b.network)
	if err != nil {
		return nil, err
	}
	curator, err := estimator.Curator(form, b.network)
	if err != nil {
		return nil, err
	}

	var (
		assetKind types.Enum
		amount    = value
		formatted = b.format(value)
	)
	if b.network.IsNative(form.FundingCurrency) {
		assetKind = types.Enum{Type: "Native"}
	} else {
		assetID, ok := b.network.Stablecoins[form.FundingCurrency]
		if !ok {
			return nil, fmt.Errorf("unsupported funding currency \"%s\"", form.FundingCurrency)
		}
		assetKind = types.Enum{Type: "Asset", Value: assetID}
		amount = estimator.StablecoinAmount(form.TotalUSD())
		formatted = utils.FormatUSD(form.TotalUSD()) + " " + form.FundingCurrency
	}

	spend := types.NewCall("Treasury", "spend",
		types.NewArg("asset_kind", assetKind),
		types.NewArg("amount", amount),
		types.NewArg("beneficiary", beneficiary(curator)),
		types.NewArg("valid_from", nil),
	)

	track := estimator.SelectSpenderTrack(b.network, value)
	submit, err := b.submitReferendum(ctx, track, spend, types.Enum{Type: "After", Value: uint32(0)})
	if err != nil {
		return nil, err
	}
	return &types.TxDescriptor{
		Call: submit,
		Explanation: types.NewExplanation("Treasury spend referendum").
			WithNode("call", types.NewExplanation("Treasury spend").
				With("beneficiary", curator).
				With("amount", formatted)).
			With("track", track.Name),
	}, nil
}

// TipReferendumCreation pays the tip (and the referral) from the treasury
// through a tipper track referendum. A recipient holding less than the
// curator deposit is topped up in the same batch.
func (b *Builder) TipReferendumCreation(ctx context.Context, form types.TipForm) (*types.TxDescriptor, error) {
	r, err := b.rate(ctx)
	if err != nil {
		return nil, err
	}
	tipValue, err := estimator.TipValue(form, r, b.network)
	if err != nil {
		return nil, err
	}
	track, err := estimator.TipperTrack(b.network, form.TipperTrack)
	if err != nil {
		return nil, err
	}

	spends := []*types.Call{
		types.NewCall("Treasury", "spend_local",
			types.NewArg("amount", tipValue),
			types.NewArg("beneficiary", beneficiary(form.TipBeneficiary)),
		),
	}
	proposal := types.NewExplanation("Tip referendum proposal").
		With("tipRecipient", form.TipBeneficiary).
		With("amount", b.format(tipValue))
	if form.HasReferral() {
		fee := estimator.ReferralFee(form, tipValue)
		spends = append(spends, types.NewCall("Treasury", "spend_local",
			types.NewArg("amount", fee),
			types.NewArg("beneficiary", beneficiary(form.Referral)),
		))
		proposal.
			With("referral", form.Referral).
			With("referralFee", fmt.Sprintf("%s (%d%%)", b.format(fee), form.ReferralFeePercent))
	}

	submit, err := b.submitReferendum(ctx, track, types.BatchAll(spends...), types.Enum{Type: "At", Value: uint32(0)})
	if err != nil {
		return nil, err
	}
	referendum := types.NewExplanation("Create tip referendum").
		WithNode("call", proposal).
		With("track", string(form.TipperTrack))

	topUp, err := b.recipientTopUp(ctx, form.TipBeneficiary)
	if err != nil {
		return nil, err
	}
	if topUp.Sign() <= 0 {
		return &types.TxDescriptor{Call: submit, Explanation: referendum}, nil
	}

	transfer := types.NewCall("Balances", "transfer_keep_alive",
		types.NewArg("dest", beneficiary(form.TipBeneficiary)),
		types.NewArg("value", topUp),
	)
	return &types.TxDescriptor{
		Call: types.BatchAll(transfer, submit),
		Explanation: types.BatchExplanation(
			types.NewExplanation("Transfer balance to tip recipient").
				With("destination", form.TipBeneficiary).
				With("value", b.format(topUp)),
			referendum,
		),
	}, nil
}

// recipientTopUp is curatorDeposit - free of an existing account, zero for a new account
func (b *Builder) recipientTopUp(ctx context.Context, address string) (types.Balance, error) {
	account, err := b.chain.Account(ctx, address)
	if err != nil {
		return types.Balance{}, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	if account == nil {
		return types.Balance{}, nil
	}
	constants, err := b.chain.Constants(ctx)
	if err != nil {
		return types.Balance{}, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	return constants.CuratorDeposit.Sub(account.Free), nil
}

func (b *Builder) DecisionDeposit(_ context.Context, index uint32) (*types.TxDescriptor, error) {
	return &types.TxDescriptor{
		Call: types.NewCall("Referenda", "place_decision_deposit",
			types.NewArg("index", index),
		),
		Explanation: types.NewExplanation("Place decision deposit").
			With("referendum", strconv.FormatUint(uint64(index), 10)),
	}, nil
}

// submitReferendum wraps the proposal into Referenda.submit with the inline encoded call
func (b *Builder) submitReferendum(
	ctx context.Context,
	track types.Track,
	proposal *types.Call,
	enactment types.Enum,
) (*types.Call, error) {
	encoded, err := b.chain.EncodeCall(ctx, proposal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	return types.NewCall("Referenda", "submit",
		types.NewArg("proposal_origin", track.OriginEnum()),
		types.NewArg("proposal", types.Enum{Type: "Inline", Value: encoded}),
		types.NewArg("enactment_moment", enactment),
	), nil
}
