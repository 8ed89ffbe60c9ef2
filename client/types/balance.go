package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Balance is an immutable amount in the chain base unit (planck).
// The zero value is a valid zero balance.
type Balance struct {
	v *big.Int
}

func NewBalance(v int64) Balance {
	return Balance{v: big.NewInt(v)}
}

func BalanceFromBig(v *big.Int) Balance {
	if v == nil {
		return Balance{}
	}
	return Balance{v: new(big.Int).Set(v)}
}

func ParseBalance(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Balance{}, fmt.Errorf("invalid balance %q", s)
	}
	return Balance{v: v}, nil
}

func (b Balance) big() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return b.v
}

// Big returns a copy of the underlying integer
func (b Balance) Big() *big.Int {
	return new(big.Int).Set(b.big())
}

func (b Balance) Add(o Balance) Balance {
	return Balance{v: new(big.Int).Add(b.big(), o.big())}
}

func (b Balance) Sub(o Balance) Balance {
	return Balance{v: new(big.Int).Sub(b.big(), o.big())}
}

func (b Balance) MulInt(n int64) Balance {
	return Balance{v: new(big.Int).Mul(b.big(), big.NewInt(n))}
}

// Percent returns b * percent / 100 rounded towards zero
func (b Balance) Percent(percent int64) Balance {
	v := new(big.Int).Mul(b.big(), big.NewInt(percent))
	return Balance{v: v.Quo(v, big.NewInt(100))}
}

func (b Balance) Cmp(o Balance) int {
	return b.big().Cmp(o.big())
}

func (b Balance) Sign() int {
	return b.big().Sign()
}

func (b Balance) IsZero() bool {
	return b.Sign() == 0
}

func (b Balance) String() string {
	return b.big().String()
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain JSON numbers are accepted as well
		s = string(data)
	}
	v, err := ParseBalance(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
