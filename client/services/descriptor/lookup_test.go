package descriptor

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/ss58"
	"github.com/lidofinance/govtx/client/services/estimator"
	"github.com/lidofinance/govtx/client/types"
)

func TestLookupProposedBounty(t *testing.T) {
	req := require.New(t)

	payload := &types.FinalizedPayload{
		Block: types.BlockRef{Hash: "0x01", Number: 1200, Index: 3},
		Events: []types.ChainEvent{
			{Pallet: "System", Name: "Remarked"},
			{Pallet: "Bounties", Name: "BountyProposed", Fields: map[string]interface{}{"index": float64(41)}},
		},
	}
	ref, err := LookupProposedBounty(payload)
	req.NoError(err)
	req.Equal(uint32(41), ref.ID)
	req.Nil(ref.MultisigTimepoint)

	payload.Events = append(payload.Events, types.ChainEvent{Pallet: "Multisig", Name: "NewMultisig"})
	ref, err = LookupProposedBounty(payload)
	req.NoError(err)
	req.Equal(&types.Timepoint{Height: 1200, Index: 3}, ref.MultisigTimepoint)

	_, err = LookupProposedBounty(&types.FinalizedPayload{})
	req.ErrorIs(err, types.ErrNotFound)

	_, err = LookupProposedBounty(&types.FinalizedPayload{Events: []types.ChainEvent{
		{Pallet: "Bounties", Name: "BountyProposed"},
	}})
	req.ErrorIs(err, types.ErrNotFound)
}

func TestLookupChildBounty(t *testing.T) {
	req := require.New(t)

	payload := &types.FinalizedPayload{Events: []types.ChainEvent{
		{Pallet: "ChildBounties", Name: "Added", Fields: map[string]interface{}{"index": 11, "child_index": 0}},
		{Pallet: "ChildBounties", Name: "Added", Fields: map[string]interface{}{"index": 12, "child_index": 4}},
	}}

	ref, err := LookupChildBounty(payload, 12)
	req.NoError(err)
	req.Equal(uint32(12), ref.ID)
	req.Equal(uint32(4), *ref.ChildID)

	ref, err = LookupChildBounty(payload, 11)
	req.NoError(err)
	req.Equal(uint32(0), *ref.ChildID)

	_, err = LookupChildBounty(payload, 13)
	req.ErrorIs(err, types.ErrNotFound)
}

func TestBuilder_FindExistingBounty(t *testing.T) {
	var (
		req         = require.New(t)
		ctx         = context.Background()
		supervisors = []string{testAddress(1), testAddress(2)}
	)
	b, client := newTestBuilder(t, testAddress(1))

	form := testRfp(supervisors...)
	multisig, err := ss58.MultisigAddress(supervisors, 2, types.Kusama.SS58Prefix)
	req.NoError(err)

	client.EXPECT().Bounties(gomock.Any()).Return([]chain.Bounty{
		{ID: 1, Description: form.ProjectTitle, Status: chain.BountyActive},
		{ID: 2, Description: "another", Status: chain.BountyProposed},
		{ID: 3, Description: form.ProjectTitle, Status: chain.BountyProposed},
	}, nil).Times(2)
	client.EXPECT().PendingMultisig(gomock.Any(), multisig, estimator.MultisigCreationHash).
		Return(&types.Timepoint{Height: 10, Index: 1}, nil)

	ref, err := b.FindExistingBounty(ctx, form)
	req.NoError(err)
	req.Equal(uint32(3), ref.ID)
	req.Equal(&types.Timepoint{Height: 10, Index: 1}, ref.MultisigTimepoint)

	form.ProjectTitle = "missing"
	_, err = b.FindExistingBounty(ctx, form)
	req.ErrorIs(err, types.ErrNotFound)

	client.EXPECT().Bounties(gomock.Any()).Return(nil, errors.New("timeout"))
	_, err = b.FindExistingBounty(ctx, form)
	req.ErrorIs(err, types.ErrPendingDependency)
}
