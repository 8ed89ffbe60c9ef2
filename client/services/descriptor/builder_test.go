package descriptor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/modules/rate"
	"github.com/lidofinance/govtx/client/modules/ss58"
	"github.com/lidofinance/govtx/client/services/estimator"
	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/mocks/chainMocks"
)

var encodedProposal = types.Bytes{0xca, 0xfe}

func testAddress(b byte) string {
	return ss58.MustEncode(bytes.Repeat([]byte{b}, 32), types.Kusama.SS58Prefix)
}

func testConstants() *chain.Constants {
	return &chain.Constants{
		MultisigDepositBase:   types.NewBalance(100),
		MultisigDepositFactor: types.NewBalance(10),
		BountyDepositBase:     types.NewBalance(50),
		DataDepositPerByte:    types.NewBalance(2),
		SubmissionDeposit:     types.NewBalance(7),
		CuratorDeposit:        types.NewBalance(30),
	}
}

func testRfp(supervisors ...string) types.RfpForm {
	return types.RfpForm{
		PrizePool:            decimal.NewFromInt(1000),
		FindersFee:           decimal.NewFromInt(100),
		SupervisorsFee:       decimal.NewFromInt(150),
		Supervisors:          supervisors,
		SignatoriesThreshold: 2,
		ProjectTitle:         "KSM RFP #3: Indexer",
		FundingCurrency:      "KSM",
	}
}

func newTestBuilder(t *testing.T, signer string) (*Builder, *chainMocks.MockClient) {
	ctrl := gomock.NewController(t)
	client := chainMocks.NewMockClient(ctrl)
	l := logger.NewLoggerWithOutput("test", io.Discard, logrus.InfoLevel)
	// 25 USD per KSM
	return NewBuilder(client, rate.FixedProvider(decimal.NewFromInt(25)), types.Kusama, signer, l), client
}

func requireSameShape(req *require.Assertions, d *types.TxDescriptor) {
	calls, explanations := d.Call.Flatten(), d.Explanation.Flatten()
	req.Equal(len(calls), len(explanations))
}

func TestBuilder_BountyCreation(t *testing.T) {
	req := require.New(t)
	b, _ := newTestBuilder(t, testAddress(1))

	d, err := b.BountyCreation(context.Background(), testRfp(testAddress(1)))
	req.NoError(err)
	requireSameShape(req, d)

	req.Equal("Utility.batch", d.Call.Name())
	calls := d.Call.Flatten()
	req.Len(calls, 2)
	req.Equal("Bounties.propose_bounty", calls[0].Name())
	req.Equal("System.remark_with_event", calls[1].Name())

	value, _ := calls[0].Arg("value")
	req.Equal("62500000000000", value.(types.Balance).String())
	description, _ := calls[0].Arg("description")
	req.Equal(types.Bytes("KSM RFP #3: Indexer"), description)

	expected := types.BatchExplanation(
		types.NewExplanation("Propose bounty").
			With("title", "KSM RFP #3: Indexer").
			With("value", "62.5 KSM"),
		types.NewExplanation("Remark").
			With("text", RemarkText),
	)
	if diff := cmp.Diff(expected, d.Explanation); diff != "" {
		t.Fatalf("unexpected explanation (-want +got):\n%s", diff)
	}
}

func TestBuilder_BountyCreationMultisigIndexing(t *testing.T) {
	var (
		req         = require.New(t)
		ctx         = context.Background()
		signer      = testAddress(1)
		supervisors = []string{testAddress(3), signer, testAddress(2)}
	)
	b, client := newTestBuilder(t, signer)

	client.EXPECT().Constants(gomock.Any()).Return(testConstants(), nil).AnyTimes()
	client.EXPECT().MultisigExists(gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	gomock.InOrder(
		client.EXPECT().Account(gomock.Any(), signer).Return(&chain.AccountInfo{Free: types.NewBalance(1000)}, nil),
		client.EXPECT().Account(gomock.Any(), signer).Return(&chain.AccountInfo{Free: types.NewBalance(130)}, nil),
	)

	d, err := b.BountyCreation(ctx, testRfp(supervisors...))
	req.NoError(err)
	requireSameShape(req, d)

	calls := d.Call.Flatten()
	req.Len(calls, 3)
	req.Equal("Multisig.approve_as_multi", calls[2].Name())

	threshold, _ := calls[2].Arg("threshold")
	req.Equal(uint16(2), threshold)
	others, _ := calls[2].Arg("other_signatories")
	req.Equal([]string{testAddress(2), testAddress(3)}, others)
	hash, _ := calls[2].Arg("call_hash")
	req.Equal(types.Bytes(make([]byte, 32)), hash)
	timepoint, _ := calls[2].Arg("maybe_timepoint")
	req.Nil(timepoint)

	address, err := ss58.MultisigAddress(supervisors, 2, types.Kusama.SS58Prefix)
	req.NoError(err)
	leaves := d.Explanation.Flatten()
	req.Equal("Multisig call to have the curator indexed", leaves[2].Label)
	param, ok := leaves[2].Param("address")
	req.True(ok)
	req.Equal(address, param.Text)

	// the deposit is not strictly below the free balance
	d, err = b.BountyCreation(ctx, testRfp(supervisors...))
	req.NoError(err)
	req.Len(d.Call.Flatten(), 2)
	requireSameShape(req, d)
}

func TestBuilder_BountyCreationSignerNotSupervisor(t *testing.T) {
	req := require.New(t)
	b, client := newTestBuilder(t, testAddress(9))

	client.EXPECT().Constants(gomock.Any()).Return(testConstants(), nil)
	client.EXPECT().MultisigExists(gomock.Any(), gomock.Any()).Return(false, nil)
	client.EXPECT().Account(gomock.Any(), testAddress(9)).Return(&chain.AccountInfo{Free: types.NewBalance(1000)}, nil)

	d, err := b.BountyCreation(context.Background(), testRfp(testAddress(1), testAddress(2)))
	req.NoError(err)
	req.Len(d.Call.Flatten(), 2)
}

func TestBuilder_PendingDependency(t *testing.T) {
	req := require.New(t)

	ctrl := gomock.NewController(t)
	client := chainMocks.NewMockClient(ctrl)
	l := logger.NewLoggerWithOutput("test", io.Discard, logrus.InfoLevel)
	b := NewBuilder(client, rate.FixedProvider(decimal.Zero), types.Kusama, testAddress(1), l)

	d, err := b.BountyCreation(context.Background(), testRfp(testAddress(1)))
	req.ErrorIs(err, types.ErrPendingDependency)
	req.Nil(d)

	b, client = newTestBuilder(t, testAddress(1))
	client.EXPECT().EncodeCall(gomock.Any(), gomock.Any()).Return(nil, errors.New("metadata is not loaded"))
	d, err = b.ReferendumCreation(context.Background(), testRfp(testAddress(1)), &BountyRef{ID: 1})
	req.ErrorIs(err, types.ErrPendingDependency)
	req.Nil(d)

	d, err = b.ReferendumCreation(context.Background(), testRfp(testAddress(1)), nil)
	req.ErrorIs(err, types.ErrPendingDependency)
	req.Nil(d)
}

func TestBuilder_ChildBountyCreation(t *testing.T) {
	req := require.New(t)
	b, _ := newTestBuilder(t, testAddress(1))

	form := testRfp(testAddress(1))
	_, err := b.ChildBountyCreation(context.Background(), form)
	req.Error(err)

	form.IsChildRfp = true
	form.ParentBountyID = 12
	d, err := b.ChildBountyCreation(context.Background(), form)
	req.NoError(err)
	requireSameShape(req, d)

	req.Equal("ChildBounties.add_child_bounty", d.Call.Name())
	parent, _ := d.Call.Arg("parent_bounty_id")
	req.Equal(uint32(12), parent)

	expected := types.NewExplanation("Add child bounty").
		With("parent", "12").
		With("title", "KSM RFP #3: Indexer").
		With("value", "62.5 KSM")
	if diff := cmp.Diff(expected, d.Explanation); diff != "" {
		t.Fatalf("unexpected explanation (-want +got):\n%s", diff)
	}
}

func TestBuilder_ReferendumCreation(t *testing.T) {
	var (
		req     = require.New(t)
		ctx     = context.Background()
		curator = testAddress(1)
	)
	b, client := newTestBuilder(t, curator)

	var proposals []*types.Call
	client.EXPECT().EncodeCall(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, call *types.Call) (types.Bytes, error) {
			proposals = append(proposals, call)
			return encodedProposal, nil
		}).Times(2)

	d, err := b.ReferendumCreation(ctx, testRfp(curator), &BountyRef{ID: 7})
	req.NoError(err)
	requireSameShape(req, d)

	req.Equal("Referenda.submit", d.Call.Name())
	origin, _ := d.Call.Arg("proposal_origin")
	req.Equal(types.Enum{Type: "Origins", Value: types.Enum{Type: "SmallSpender"}}, origin)
	proposal, _ := d.Call.Arg("proposal")
	req.Equal(types.Enum{Type: "Inline", Value: encodedProposal}, proposal)
	enactment, _ := d.Call.Arg("enactment_moment")
	req.Equal(types.Enum{Type: "After", Value: uint32(0)}, enactment)

	req.Equal("Bounties.approve_bounty_with_curator", proposals[0].Name())
	fee, _ := proposals[0].Arg("fee")
	req.Equal("6000000000000", fee.(types.Balance).String())

	expected := types.NewExplanation("Referendum proposal").
		WithNode("call", types.NewExplanation("Approve bounty with curator").
			With("bounty", "7").
			With("curator", curator).
			With("fee", "6 KSM")).
		With("track", "small_spender")
	if diff := cmp.Diff(expected, d.Explanation); diff != "" {
		t.Fatalf("unexpected explanation (-want +got):\n%s", diff)
	}

	child := uint32(2)
	d, err = b.ReferendumCreation(ctx, testRfp(curator), &BountyRef{ID: 7, ChildID: &child})
	req.NoError(err)
	req.Equal("ChildBounties.propose_curator", proposals[1].Name())
	childArg, _ := proposals[1].Arg("child_bounty_id")
	req.Equal(uint32(2), childArg)
	req.Equal("Propose child bounty curator", d.Explanation.Params[0].Node.Label)
}

func TestBuilder_TreasurySpend(t *testing.T) {
	var (
		req         = require.New(t)
		ctx         = context.Background()
		supervisors = []string{testAddress(1), testAddress(2)}
	)
	b, client := newTestBuilder(t, testAddress(1))

	var spends []*types.Call
	client.EXPECT().EncodeCall(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, call *types.Call) (types.Bytes, error) {
			spends = append(spends, call)
			return encodedProposal, nil
		}).Times(2)

	form := testRfp(supervisors...)
	form.FundingCurrency = "USDC"
	d, err := b.TreasurySpend(ctx, form)
	req.NoError(err)
	requireSameShape(req, d)

	multisig, err := ss58.MultisigAddress(supervisors, 2, types.Kusama.SS58Prefix)
	req.NoError(err)

	req.Equal("Treasury.spend", spends[0].Name())
	asset, _ := spends[0].Arg("asset_kind")
	req.Equal(types.Enum{Type: "Asset", Value: uint32(1337)}, asset)
	amount, _ := spends[0].Arg("amount")
	req.Equal("1250000000", amount.(types.Balance).String())
	to, _ := spends[0].Arg("beneficiary")
	req.Equal(types.Enum{Type: "Id", Value: multisig}, to)

	form.FundingCurrency = "KSM"
	_, err = b.TreasurySpend(ctx, form)
	req.NoError(err)
	asset, _ = spends[1].Arg("asset_kind")
	req.Equal(types.Enum{Type: "Native"}, asset)
	amount, _ = spends[1].Arg("amount")
	req.Equal("62500000000000", amount.(types.Balance).String())

	form.FundingCurrency = "EUR"
	_, err = b.TreasurySpend(ctx, form)
	req.Error(err)
}

func TestBuilder_TipReferendumCreation(t *testing.T) {
	var (
		req       = require.New(t)
		ctx       = context.Background()
		recipient = testAddress(5)
		referral  = testAddress(6)
	)
	b, client := newTestBuilder(t, testAddress(1))

	var inner *types.Call
	client.EXPECT().EncodeCall(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, call *types.Call) (types.Bytes, error) {
			inner = call
			return encodedProposal, nil
		}).AnyTimes()
	client.EXPECT().Constants(gomock.Any()).Return(testConstants(), nil).AnyTimes()

	form := types.TipForm{
		TipBeneficiary:     recipient,
		TipAmount:          decimal.NewFromInt(50),
		Referral:           referral,
		ReferralFeePercent: 10,
		TipperTrack:        types.SmallTipper,
	}

	// a new account is not topped up
	client.EXPECT().Account(gomock.Any(), recipient).Return(nil, nil)
	d, err := b.TipReferendumCreation(ctx, form)
	req.NoError(err)
	requireSameShape(req, d)

	req.Equal("Referenda.submit", d.Call.Name())
	origin, _ := d.Call.Arg("proposal_origin")
	req.Equal(types.Enum{Type: "Origins", Value: types.Enum{Type: "SmallTipper"}}, origin)
	enactment, _ := d.Call.Arg("enactment_moment")
	req.Equal(types.Enum{Type: "At", Value: uint32(0)}, enactment)

	req.Equal("Utility.batch_all", inner.Name())
	spends := inner.Flatten()
	req.Len(spends, 2)
	amount, _ := spends[1].Arg("amount")
	req.Equal("250000000000", amount.(types.Balance).String())

	expected := types.NewExplanation("Create tip referendum").
		WithNode("call", types.NewExplanation("Tip referendum proposal").
			With("tipRecipient", recipient).
			With("amount", "2.5 KSM").
			With("referral", referral).
			With("referralFee", "0.25 KSM (10%)")).
		With("track", "small_tipper")
	if diff := cmp.Diff(expected, d.Explanation); diff != "" {
		t.Fatalf("unexpected explanation (-want +got):\n%s", diff)
	}

	// an existing account below the curator deposit gets the difference first
	client.EXPECT().Account(gomock.Any(), recipient).Return(&chain.AccountInfo{Free: types.NewBalance(10)}, nil)
	form.Referral = ""
	d, err = b.TipReferendumCreation(ctx, form)
	req.NoError(err)
	requireSameShape(req, d)

	req.Equal("Utility.batch_all", d.Call.Name())
	calls := d.Call.Flatten()
	req.Len(calls, 2)
	req.Equal("Balances.transfer_keep_alive", calls[0].Name())
	value, _ := calls[0].Arg("value")
	req.Equal("20", value.(types.Balance).String())
	req.Equal("Referenda.submit", calls[1].Name())
	req.Len(inner.Flatten(), 1)

	leaves := d.Explanation.Flatten()
	req.Equal("Transfer balance to tip recipient", leaves[0].Label)
	req.Equal("Create tip referendum", leaves[1].Label)
	_, ok := leaves[1].Params[0].Node.Param("referral")
	req.False(ok)

	// an account above the curator deposit is left alone
	client.EXPECT().Account(gomock.Any(), recipient).Return(&chain.AccountInfo{Free: types.NewBalance(31)}, nil)
	d, err = b.TipReferendumCreation(ctx, form)
	req.NoError(err)
	req.Equal("Referenda.submit", d.Call.Name())

	form.TipperTrack = "huge_tipper"
	_, err = b.TipReferendumCreation(ctx, form)
	req.Error(err)
}

func TestBuilder_DecisionDeposit(t *testing.T) {
	req := require.New(t)
	b, _ := newTestBuilder(t, testAddress(1))

	d, err := b.DecisionDeposit(context.Background(), 0)
	req.NoError(err)
	requireSameShape(req, d)
	req.Equal("Referenda.place_decision_deposit", d.Call.Name())
	index, _ := d.Call.Arg("index")
	req.Equal(uint32(0), index)
	req.Equal("Place decision deposit", d.Explanation.Label)
	param, _ := d.Explanation.Param("referendum")
	req.Equal("0", param.Text)
}

func TestBuilder_TipWithReferral(t *testing.T) {
	req := require.New(t)

	ctrl := gomock.NewController(t)
	client := chainMocks.NewMockClient(ctrl)
	l := logger.NewLoggerWithOutput("test", io.Discard, logrus.InfoLevel)
	// 20 USD per KSM
	b := NewBuilder(client, rate.FixedProvider(decimal.NewFromInt(20)), types.Kusama, testAddress(1), l)

	form := types.TipForm{
		TipBeneficiary:     testAddress(5),
		TipAmount:          decimal.NewFromInt(100),
		Referral:           testAddress(6),
		ReferralFeePercent: 10,
	}
	track, err := estimator.SelectTipperTrack(types.Kusama, form.TipAmount, decimal.NewFromInt(20))
	req.NoError(err)
	req.Equal(types.SmallTipper, track)
	form.TipperTrack = track

	var encoded *types.Call
	client.EXPECT().EncodeCall(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, call *types.Call) (types.Bytes, error) {
			encoded = call
			return encodedProposal, nil
		})
	client.EXPECT().Account(gomock.Any(), testAddress(5)).Return(nil, nil)

	d, err := b.TipReferendumCreation(context.Background(), form)
	req.NoError(err)
	req.Equal("Referenda.submit", d.Call.Name())

	req.Equal("Utility.batch_all", encoded.Name())
	spends := encoded.Calls()
	req.Len(spends, 2)
	for _, spend := range spends {
		req.Equal("Treasury.spend_local", spend.Name())
	}
	tip, _ := spends[0].Arg("amount")
	referral, _ := spends[1].Arg("amount")
	req.Equal("5000000000000", tip.(types.Balance).String())
	req.Equal("500000000000", referral.(types.Balance).String())

	origin, _ := d.Call.Arg("proposal_origin")
	req.Equal(types.Enum{Type: "Origins", Value: types.Enum{Type: "SmallTipper"}}, origin)

	proposal, ok := d.Explanation.Param("call")
	req.True(ok)
	req.NotNil(proposal.Node)
	fee, ok := proposal.Node.Param("referralFee")
	req.True(ok)
	req.Equal("0.5 KSM (10%)", fee.Text)
}
