package descriptor

import (
	"context"
	"fmt"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/services/estimator"
	"github.com/lidofinance/govtx/client/types"
)

// LookupProposedBounty reads the bounty index from the finalized bounty batch.
// The multisig timepoint is the extrinsic location when the batch opened the
// indexing multisig operation.
func LookupProposedBounty(payload *types.FinalizedPayload) (*BountyRef, error) {
	events := payload.FindEvents("Bounties", "BountyProposed")
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no BountyProposed event in the finalized block", types.ErrNotFound)
	}
	index, ok := events[0].Uint("index")
	if !ok {
		return nil, fmt.Errorf("%w: BountyProposed event has no index", types.ErrNotFound)
	}

	ref := &BountyRef{ID: index}
	if len(payload.FindEvents("Multisig", "NewMultisig")) > 0 {
		ref.MultisigTimepoint = &types.Timepoint{
			Height: payload.Block.Number,
			Index:  payload.Block.Index,
		}
	}
	return ref, nil
}

// LookupChildBounty reads the child bounty index from ChildBounties.Added
func LookupChildBounty(payload *types.FinalizedPayload, parentID uint32) (*BountyRef, error) {
	for _, event := range payload.FindEvents("ChildBounties", "Added") {
		index, ok := event.Uint("index")
		if !ok || index != parentID {
			continue
		}
		childID, ok := event.Uint("child_index")
		if !ok {
			continue
		}
		return &BountyRef{ID: parentID, ChildID: &childID}, nil
	}
	return nil, fmt.Errorf("%w: no ChildBounties.Added event for parent %d", types.ErrNotFound, parentID)
}

// FindExistingBounty looks for a proposed bounty with the RFP title, used when
// a flow is resumed without the finalized bounty batch.
func (b *Builder) FindExistingBounty(ctx context.Context, form types.RfpForm) (*BountyRef, error) {
	bounties, err := b.chain.Bounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}

	var ref *BountyRef
	for _, bounty := range bounties {
		if bounty.Status == chain.BountyProposed && bounty.Description == form.ProjectTitle {
			ref = &BountyRef{ID: bounty.ID}
			break
		}
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: no proposed bounty titled \"%s\"", types.ErrNotFound, form.ProjectTitle)
	}

	if len(form.Supervisors) > 1 {
		address, err := estimator.Curator(form, b.network)
		if err != nil {
			return nil, err
		}
		when, err := b.chain.PendingMultisig(ctx, address, estimator.MultisigCreationHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
		}
		ref.MultisigTimepoint = when
	}
	return ref, nil
}
