package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type StepTag string

const (
	StepBounty        StepTag = "bounty"
	StepChildBounty   StepTag = "childBounty"
	StepTreasurySpend StepTag = "treasurySpend"
	StepReferendum    StepTag = "ref"
	StepDecision      StepTag = "decision"
)

type FlowKind string

const (
	FlowBountyRfp      FlowKind = "bounty_rfp"
	FlowChildBountyRfp FlowKind = "child_bounty_rfp"
	FlowMultisigRfp    FlowKind = "multisig_rfp"
	FlowTip            FlowKind = "tip"
)

// Steps returns the declared step order of the flow
func (k FlowKind) Steps() []StepTag {
	switch k {
	case FlowBountyRfp:
		return []StepTag{StepBounty, StepReferendum, StepDecision}
	case FlowChildBountyRfp:
		return []StepTag{StepChildBounty, StepReferendum, StepDecision}
	case FlowMultisigRfp:
		return []StepTag{StepTreasurySpend, StepDecision}
	case FlowTip:
		return []StepTag{StepReferendum, StepDecision}
	default:
		return nil
	}
}

type TipperTrack string

const (
	SmallTipper TipperTrack = "small_tipper"
	BigTipper   TipperTrack = "big_tipper"
)

type Milestone struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// RfpForm is a validated RFP form. USD amounts are kept as decimals.
type RfpForm struct {
	IsChildRfp           bool            `json:"isChildRfp"`
	ParentBountyID       uint32          `json:"parentBountyId,omitempty"`
	PrizePool            decimal.Decimal `json:"prizePool"`
	FindersFee           decimal.Decimal `json:"findersFee"`
	SupervisorsFee       decimal.Decimal `json:"supervisorsFee"`
	Supervisors          []string        `json:"supervisors"`
	SignatoriesThreshold int             `json:"signatoriesThreshold"`
	SubmissionDeadline   time.Time       `json:"submissionDeadline"`
	ProjectCompletion    *time.Time      `json:"projectCompletion,omitempty"`
	ProjectTitle         string          `json:"projectTitle"`
	ProjectScope         string          `json:"projectScope"`
	Milestones           []Milestone     `json:"milestones"`
	FundingCurrency      string          `json:"fundingCurrency"`
}

// Clone returns a deep copy, the result shares nothing with the receiver
func (f RfpForm) Clone() RfpForm {
	c := f
	c.Supervisors = append([]string(nil), f.Supervisors...)
	c.Milestones = append([]Milestone(nil), f.Milestones...)
	if f.ProjectCompletion != nil {
		completion := *f.ProjectCompletion
		c.ProjectCompletion = &completion
	}
	return c
}

// TotalUSD is the sum of all the RFP funding components
func (f RfpForm) TotalUSD() decimal.Decimal {
	return f.PrizePool.Add(f.FindersFee).Add(f.SupervisorsFee)
}

type TipForm struct {
	TipBeneficiary     string          `json:"tipBeneficiary"`
	TipAmount          decimal.Decimal `json:"tipAmount"`
	Referral           string          `json:"referral,omitempty"`
	ReferralFeePercent int64           `json:"referralFeePercent,omitempty"`
	TipperTrack        TipperTrack     `json:"tipperTrack"`
}

func (f TipForm) Clone() TipForm {
	return f
}

// HasReferral reports whether the referral leg must be paid
func (f TipForm) HasReferral() bool {
	return f.Referral != "" && f.ReferralFeePercent > 0
}

// TxDescriptor is an unsigned call together with its human readable explanation
type TxDescriptor struct {
	Call        *Call          `json:"call"`
	Explanation *TxExplanation `json:"explanation"`
}

type StepStateKind string

const (
	StepNotReady   StepStateKind = "not_ready"
	StepTxReady    StepStateKind = "tx_ready"
	StepSubmitting StepStateKind = "submitting"
	StepDone       StepStateKind = "done"
)

type StepState struct {
	Tag        StepTag       `json:"tag"`
	Kind       StepStateKind `json:"kind"`
	Descriptor *TxDescriptor `json:"descriptor,omitempty"`
	Event      *TxEvent      `json:"event,omitempty"`
	// Err explains a not_ready step: ErrPendingDependency while loading, ErrNotFound when fatal
	Err error `json:"-"`
}

// ErrorMessage is the JSON friendly form of Err
func (s StepState) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

func (s StepState) MarshalJSON() ([]byte, error) {
	type stepState StepState
	return json.Marshal(struct {
		stepState
		Error string `json:"error,omitempty"`
	}{
		stepState: stepState(s),
		Error:     s.ErrorMessage(),
	})
}

type ActiveStep struct {
	Finished        bool       `json:"finished"`
	Step            *StepState `json:"step,omitempty"`
	ReferendumIndex *uint32    `json:"referendumIndex,omitempty"`
}

type CostEstimate struct {
	Deposits Balance `json:"deposits"`
	Fees     Balance `json:"fees"`
	// FeesApproximated is set while fees are not computed and reported as zero
	FeesApproximated bool `json:"feesApproximated"`
}

// Total is deposits plus fees
func (c *CostEstimate) Total() Balance {
	return c.Deposits.Add(c.Fees)
}

// Covers reports whether the balance is enough to pay for the flow
func (c *CostEstimate) Covers(balance Balance) bool {
	return balance.Cmp(c.Total()) >= 0
}
