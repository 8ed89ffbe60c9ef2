package estimator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/lidofinance/govtx/client/modules/chain"
	"github.com/lidofinance/govtx/client/modules/ss58"
	"github.com/lidofinance/govtx/client/types"
)

// MultisigCreationHash is the call hash of the approval that gets the curator multisig indexed
var MultisigCreationHash = types.Bytes(make([]byte, 32))

// MultisigPlan describes the supervisors multisig of an RFP
type MultisigPlan struct {
	Address     string
	Threshold   uint16
	Signatories []string
	// OtherSignatories are the sorted signatories without the signer,
	// empty when the signer is not a supervisor
	OtherSignatories []string
	Deposit          types.Balance
	// Indexing is set when approve_as_multi must be added to the bounty batch
	Indexing bool
}

// SignerIsSupervisor reports whether the signer can send approve_as_multi
func (p *MultisigPlan) SignerIsSupervisor() bool {
	return len(p.OtherSignatories) < len(p.Signatories)
}

func multisigThreshold(form types.RfpForm) uint16 {
	threshold := form.SignatoriesThreshold
	if threshold > len(form.Supervisors) {
		threshold = len(form.Supervisors)
	}
	if threshold < 1 {
		threshold = 1
	}
	return uint16(threshold)
}

// Curator is the multisig address of more than one supervisor, otherwise the only supervisor
func Curator(form types.RfpForm, network types.Network) (string, error) {
	switch len(form.Supervisors) {
	case 0:
		return "", fmt.Errorf("rfp has no supervisors")
	case 1:
		return ss58.Reencode(form.Supervisors[0], network.SS58Prefix)
	default:
		return ss58.MultisigAddress(form.Supervisors, multisigThreshold(form), network.SS58Prefix)
	}
}

// PlanMultisig returns nil for a single supervisor. The multisig is indexed
// when it is unknown on chain and the signer can afford the deposit.
func PlanMultisig(
	ctx context.Context,
	client chain.Client,
	network types.Network,
	form types.RfpForm,
	signer string,
) (*MultisigPlan, error) {
	if len(form.Supervisors) <= 1 {
		return nil, nil
	}

	plan := &MultisigPlan{
		Threshold: multisigThreshold(form),
	}

	var err error
	if plan.Address, err = ss58.MultisigAddress(form.Supervisors, plan.Threshold, network.SS58Prefix); err != nil {
		return nil, fmt.Errorf("failed to derive multisig address: %w", err)
	}

	signerKey, err := ss58.PublicKey(signer)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signer address: %w", err)
	}

	keys := make([][]byte, 0, len(form.Supervisors))
	for _, addr := range form.Supervisors {
		pk, err := ss58.PublicKey(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode supervisor %s: %w", addr, err)
		}
		keys = append(keys, pk)
	}
	for _, pk := range ss58.SortSignatories(keys) {
		addr, err := ss58.Encode(pk, network.SS58Prefix)
		if err != nil {
			return nil, err
		}
		plan.Signatories = append(plan.Signatories, addr)
		if !bytes.Equal(pk, signerKey) {
			plan.OtherSignatories = append(plan.OtherSignatories, addr)
		}
	}

	constants, err := client.Constants(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	plan.Deposit = constants.MultisigDeposit(len(form.Supervisors))

	exists, err := client.MultisigExists(ctx, plan.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	if exists {
		return plan, nil
	}

	account, err := client.Account(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPendingDependency, err)
	}
	var free types.Balance
	if account != nil {
		free = account.Free
	}
	plan.Indexing = plan.Deposit.Cmp(free) < 0

	return plan, nil
}
