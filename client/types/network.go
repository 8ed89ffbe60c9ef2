package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Track is a referendum track able to spend treasury funds
type Track struct {
	ID     uint16 `json:"id"`
	Name   string `json:"name"`
	Origin string `json:"origin"`
	// MaxSpend is the largest native amount the track may spend, zero means unlimited
	MaxSpend decimal.Decimal `json:"maxSpend"`
}

// OriginEnum is the proposal origin of the track
func (t Track) OriginEnum() Enum {
	if t.Origin == "Root" {
		return Enum{Type: "system", Value: Enum{Type: "Root"}}
	}
	return Enum{Type: "Origins", Value: Enum{Type: t.Origin}}
}

type Network struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Decimals   int32  `json:"decimals"`
	SS58Prefix uint16 `json:"ss58Prefix"`
	// Tracks are sorted by MaxSpend, the last one is unlimited
	Tracks []Track `json:"tracks"`
	// Stablecoins maps a funding currency to its asset id on the asset hub
	Stablecoins map[string]uint32 `json:"stablecoins"`
}

const StablecoinDecimals = 6

var (
	Kusama = Network{
		Name:       "kusama",
		Symbol:     "KSM",
		Decimals:   12,
		SS58Prefix: 2,
		Tracks: []Track{
			{ID: 30, Name: string(SmallTipper), Origin: "SmallTipper", MaxSpend: decimal.RequireFromString("8.25")},
			{ID: 31, Name: string(BigTipper), Origin: "BigTipper", MaxSpend: decimal.RequireFromString("33.33")},
			{ID: 32, Name: "small_spender", Origin: "SmallSpender", MaxSpend: decimal.RequireFromString("333.33")},
			{ID: 33, Name: "medium_spender", Origin: "MediumSpender", MaxSpend: decimal.RequireFromString("3333.33")},
			{ID: 34, Name: "big_spender", Origin: "BigSpender", MaxSpend: decimal.RequireFromString("33333.33")},
			{ID: 11, Name: "treasurer", Origin: "Treasurer"},
		},
		Stablecoins: map[string]uint32{"USDT": 1984, "USDC": 1337},
	}

	Polkadot = Network{
		Name:       "polkadot",
		Symbol:     "DOT",
		Decimals:   10,
		SS58Prefix: 0,
		Tracks: []Track{
			{ID: 30, Name: string(SmallTipper), Origin: "SmallTipper", MaxSpend: decimal.NewFromInt(250)},
			{ID: 31, Name: string(BigTipper), Origin: "BigTipper", MaxSpend: decimal.NewFromInt(1000)},
			{ID: 32, Name: "small_spender", Origin: "SmallSpender", MaxSpend: decimal.NewFromInt(10000)},
			{ID: 33, Name: "medium_spender", Origin: "MediumSpender", MaxSpend: decimal.NewFromInt(100000)},
			{ID: 34, Name: "big_spender", Origin: "BigSpender", MaxSpend: decimal.NewFromInt(1000000)},
			{ID: 11, Name: "treasurer", Origin: "Treasurer"},
		},
		Stablecoins: map[string]uint32{"USDT": 1984, "USDC": 1337},
	}
)

func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(name) {
	case Kusama.Name:
		return Kusama, nil
	case Polkadot.Name:
		return Polkadot, nil
	default:
		return Network{}, fmt.Errorf("unknown network %q", name)
	}
}

func (n Network) TrackByName(name string) (Track, bool) {
	for _, t := range n.Tracks {
		if t.Name == name {
			return t, true
		}
	}
	return Track{}, false
}

// IsNative reports whether the funding currency is the native token
func (n Network) IsNative(currency string) bool {
	return currency == "" || strings.EqualFold(currency, n.Symbol)
}
