package chain

import (
	"context"

	"github.com/lidofinance/govtx/client/types"
)

// Client is the read/write surface of the governance chain used by the flows
type Client interface {
	// Account returns nil without error when the account does not exist
	Account(ctx context.Context, address string) (*AccountInfo, error)
	Constants(ctx context.Context) (*Constants, error)
	DecisionDeposit(ctx context.Context, trackID uint16) (types.Balance, error)
	MultisigExists(ctx context.Context, address string) (bool, error)
	// PendingMultisig returns the timepoint of an open multisig operation, nil when there is none
	PendingMultisig(ctx context.Context, address string, callHash types.Bytes) (*types.Timepoint, error)
	Bounties(ctx context.Context) ([]Bounty, error)

	EncodeCall(ctx context.Context, call *types.Call) (types.Bytes, error)
	SigningPayload(ctx context.Context, signer string, call *types.Call) (types.Bytes, error)
	// SubmitAndWatch broadcasts the signed extrinsic. The returned channel is
	// closed after a finalized or an error status.
	SubmitAndWatch(ctx context.Context, tx *SignedTx) (<-chan TxStatus, error)
}

type AccountInfo struct {
	Free     types.Balance `json:"free"`
	Reserved types.Balance `json:"reserved"`
	Nonce    uint32        `json:"nonce"`
}

// Constants are the runtime constants the deposits are computed from
type Constants struct {
	// Multisig.DepositBase and Multisig.DepositFactor
	MultisigDepositBase   types.Balance `json:"multisigDepositBase"`
	MultisigDepositFactor types.Balance `json:"multisigDepositFactor"`
	// Bounties.BountyDepositBase and Bounties.DataDepositPerByte
	BountyDepositBase  types.Balance `json:"bountyDepositBase"`
	DataDepositPerByte types.Balance `json:"dataDepositPerByte"`
	// Referenda.SubmissionDeposit
	SubmissionDeposit types.Balance `json:"submissionDeposit"`
	// CuratorDeposit is the minimal curator deposit, tip recipients are topped up to it
	CuratorDeposit types.Balance `json:"curatorDeposit"`
}

// MultisigDeposit is the deposit reserved by approve_as_multi for n signatories
func (c *Constants) MultisigDeposit(n int) types.Balance {
	return c.MultisigDepositBase.Add(c.MultisigDepositFactor.MulInt(int64(n)))
}

// BountyDeposit is the deposit reserved by propose_bounty
func (c *Constants) BountyDeposit(description string) types.Balance {
	return c.BountyDepositBase.Add(c.DataDepositPerByte.MulInt(int64(len(description))))
}

type BountyStatus string

const (
	BountyProposed BountyStatus = "Proposed"
	BountyApproved BountyStatus = "Approved"
	BountyFunded   BountyStatus = "Funded"
	BountyActive   BountyStatus = "Active"
)

type Bounty struct {
	ID          uint32        `json:"id"`
	Description string        `json:"description"`
	Status      BountyStatus  `json:"status"`
	Value       types.Balance `json:"value"`
	Proposer    string        `json:"proposer"`
}

type SignedTx struct {
	Signer    string      `json:"signer"`
	Call      *types.Call `json:"call"`
	Payload   types.Bytes `json:"payload"`
	Signature types.Bytes `json:"signature"`
}

type TxStatusType string

const (
	StatusBroadcasted TxStatusType = "broadcasted"
	StatusInBlock     TxStatusType = "in_block"
	StatusFinalized   TxStatusType = "finalized"
	StatusError       TxStatusType = "error"
)

// TxStatus is a single status update of a watched extrinsic
type TxStatus struct {
	Type   TxStatusType `json:"type"`
	TxHash string       `json:"txHash"`
	// Finalized is set on in_block when the block is already finalized
	Finalized bool                    `json:"finalized,omitempty"`
	Ok        bool                    `json:"ok,omitempty"`
	Payload   *types.FinalizedPayload `json:"payload,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

func (s TxStatus) IsTerminal() bool {
	return s.Type == StatusFinalized || s.Type == StatusError
}
