package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const BatchLabel = "batch"

// TxExplanation is a human readable tree describing a call.
// A node labelled "batch" lists its inner calls under keys "0", "1", ...
type TxExplanation struct {
	Label  string
	Params []ExplanationParam
}

// ExplanationParam holds either a text value or a nested explanation
type ExplanationParam struct {
	Key  string
	Text string
	Node *TxExplanation
}

func NewExplanation(label string) *TxExplanation {
	return &TxExplanation{Label: label}
}

// With appends a text param
func (e *TxExplanation) With(key, text string) *TxExplanation {
	e.Params = append(e.Params, ExplanationParam{Key: key, Text: text})
	return e
}

// WithNode appends a nested explanation param
func (e *TxExplanation) WithNode(key string, node *TxExplanation) *TxExplanation {
	e.Params = append(e.Params, ExplanationParam{Key: key, Node: node})
	return e
}

func BatchExplanation(nodes ...*TxExplanation) *TxExplanation {
	e := NewExplanation(BatchLabel)
	for i, node := range nodes {
		e.WithNode(strconv.Itoa(i), node)
	}
	return e
}

func (e *TxExplanation) IsBatch() bool {
	return e.Label == BatchLabel
}

func (e *TxExplanation) Param(key string) (ExplanationParam, bool) {
	for _, p := range e.Params {
		if p.Key == key {
			return p, true
		}
	}
	return ExplanationParam{}, false
}

// Flatten expands batch nodes recursively and returns the ordered leaves
func (e *TxExplanation) Flatten() []*TxExplanation {
	if !e.IsBatch() {
		return []*TxExplanation{e}
	}
	var leaves []*TxExplanation
	for _, p := range e.Params {
		if p.Node != nil {
			leaves = append(leaves, p.Node.Flatten()...)
		}
	}
	return leaves
}

// MarshalJSON keeps params order: {"label": "...", "params": {"k1": ..., "k2": ...}}
func (e *TxExplanation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	label, err := json.Marshal(e.Label)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"label":`)
	buf.Write(label)
	buf.WriteString(`,"params":{`)

	for i, p := range e.Params {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value []byte
		if p.Node != nil {
			value, err = p.Node.MarshalJSON()
		} else {
			value, err = json.Marshal(p.Text)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to marshal param %s: %w", p.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteString("}}")

	return buf.Bytes(), nil
}

func (e *TxExplanation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label  string          `json:"label"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Label = raw.Label
	e.Params = nil

	if len(raw.Params) == 0 || string(raw.Params) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Params))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read params: %w", err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read param key: %w", err)
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to read param %s: %w", key, err)
		}

		var text string
		if err := json.Unmarshal(value, &text); err == nil {
			e.With(key, text)
			continue
		}
		node := &TxExplanation{}
		if err := node.UnmarshalJSON(value); err != nil {
			return fmt.Errorf("failed to read param %s: %w", key, err)
		}
		e.WithNode(key, node)
	}

	return nil
}
