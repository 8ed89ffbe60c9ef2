package types

import (
	"encoding/json"
	"errors"
)

var (
	// ErrSignerRejected means the signer refused to sign, retryable by re-submit
	ErrSignerRejected = errors.New("signer rejected")
	// ErrBroadcastFailed covers network and broadcast failures, retryable by re-submit
	ErrBroadcastFailed = errors.New("broadcast failed")
	// ErrDispatchError means the call was included but failed on chain
	ErrDispatchError = errors.New("dispatch error")
	// ErrCancelled marks an attempt superseded by a newer one, never shown to the user
	ErrCancelled = errors.New("cancelled")
	// ErrPendingDependency is an unresolved external read, rendered as loading
	ErrPendingDependency = errors.New("pending dependency")
	// ErrNotFound is an on-chain entity missing after finalization, fatal for the step
	ErrNotFound = errors.New("not found")

	ErrTipTooLarge         = errors.New("tip amount is too large for tipper tracks")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownStep         = errors.New("unknown step")
	ErrUnknownFlow         = errors.New("unknown flow")
)

var txErrorKinds = map[string]error{
	"signer_rejected":  ErrSignerRejected,
	"broadcast_failed": ErrBroadcastFailed,
	"dispatch_error":   ErrDispatchError,
	"cancelled":        ErrCancelled,
}

// TxError is a terminal error of a submission attempt
type TxError struct {
	Kind   error
	Detail string
}

func NewTxError(kind error, detail string) *TxError {
	return &TxError{Kind: kind, Detail: detail}
}

func (e *TxError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *TxError) Unwrap() error {
	return e.Kind
}

// Retryable reports whether a new submit is the expected reaction
func (e *TxError) Retryable() bool {
	return !errors.Is(e.Kind, ErrCancelled)
}

func (e *TxError) kindName() string {
	for name, kind := range txErrorKinds {
		if kind == e.Kind {
			return name
		}
	}
	return "unknown"
}

func (e *TxError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   string `json:"kind"`
		Detail string `json:"detail,omitempty"`
	}{
		Kind:   e.kindName(),
		Detail: e.Detail,
	})
}

func (e *TxError) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind   string `json:"kind"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, ok := txErrorKinds[raw.Kind]
	if !ok {
		kind = ErrBroadcastFailed
	}
	e.Kind = kind
	e.Detail = raw.Detail
	return nil
}
