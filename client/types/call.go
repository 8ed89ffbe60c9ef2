package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	PalletUtility = "Utility"

	MethodBatch    = "batch"
	MethodBatchAll = "batch_all"
)

// Call is an unsigned runtime call. Args keep the declaration order of the
// runtime metadata, encoding them is up to the chain client.
type Call struct {
	Pallet string `json:"pallet"`
	Method string `json:"method"`
	Args   []Arg  `json:"args"`
}

type Arg struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Enum is a runtime enum variant, e.g. MultiAddress.Id or an origin
type Enum struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value,omitempty"`
}

// Bytes is a byte blob rendered as 0x-prefixed hex
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	bz, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("failed to decode hex bytes: %w", err)
	}
	*b = bz
	return nil
}

func NewCall(pallet, method string, args ...Arg) *Call {
	return &Call{
		Pallet: pallet,
		Method: method,
		Args:   args,
	}
}

func NewArg(name string, value interface{}) Arg {
	return Arg{Name: name, Value: value}
}

func Batch(calls ...*Call) *Call {
	return NewCall(PalletUtility, MethodBatch, NewArg("calls", calls))
}

func BatchAll(calls ...*Call) *Call {
	return NewCall(PalletUtility, MethodBatchAll, NewArg("calls", calls))
}

func (c *Call) Name() string {
	return c.Pallet + "." + c.Method
}

func (c *Call) String() string {
	return c.Name()
}

func (c *Call) Arg(name string) (interface{}, bool) {
	for _, arg := range c.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

func (c *Call) IsBatch() bool {
	return c.Pallet == PalletUtility && (c.Method == MethodBatch || c.Method == MethodBatchAll)
}

// Calls returns the inner calls of a batch
func (c *Call) Calls() []*Call {
	if !c.IsBatch() {
		return nil
	}
	v, _ := c.Arg("calls")
	calls, _ := v.([]*Call)
	return calls
}

// Flatten expands batches recursively and returns calls in dispatch order
func (c *Call) Flatten() []*Call {
	if !c.IsBatch() {
		return []*Call{c}
	}
	var leaves []*Call
	for _, inner := range c.Calls() {
		leaves = append(leaves, inner.Flatten()...)
	}
	return leaves
}
