package storage

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSignature = errors.New("invalid journal message signature")

// Message is a journal record of an accepted transaction event.
// ID and Offset are assigned by the storage on Send.
type Message struct {
	ID        string          `json:"id"`
	Offset    uint64          `json:"offset"`
	FlowID    string          `json:"flowId"`
	Step      string          `json:"step"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Signer    string          `json:"signer,omitempty"`
	Signature []byte          `json:"signature,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Storage is an append-only journal
type Storage interface {
	Send(messages ...Message) error
	GetMessages(offset uint64) ([]Message, error)
	Close() error
}

func NewMessage(flowID, step, event string, data interface{}) (Message, error) {
	bz, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal message data: %w", err)
	}
	return Message{
		FlowID:    flowID,
		Step:      step,
		Event:     event,
		Data:      bz,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SigBytes is the signed part of the message
func (m *Message) SigBytes() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s", m.FlowID, m.Step, m.Event, m.Data))
}

func (m *Message) Sign(signer string, priv ed25519.PrivateKey) {
	m.Signer = signer
	m.Signature = ed25519.Sign(priv, m.SigBytes())
}

func (m *Message) Verify(pub ed25519.PublicKey) error {
	if len(m.Signature) == 0 || !ed25519.Verify(pub, m.SigBytes(), m.Signature) {
		return fmt.Errorf("%w: message %s", ErrInvalidSignature, m.ID)
	}
	return nil
}
