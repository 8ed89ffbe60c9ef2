package estimator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lidofinance/govtx/client/types"
	"github.com/lidofinance/govtx/pkg/utils"
)

// BountyBuffer covers the native price moving between proposal and payout
var BountyBuffer = decimal.RequireFromString("1.25")

// toNative converts usd to planck with the given multiplier: round(usd * k / rate * 10^decimals)
func toNative(usd, k, rate decimal.Decimal, decimals int32) types.Balance {
	return types.BalanceFromBig(usd.Mul(k).Shift(decimals).DivRound(rate, 0).BigInt())
}

// BountyValue is the native bounty value of the RFP including the price buffer
func BountyValue(form types.RfpForm, rate decimal.Decimal, network types.Network) (types.Balance, error) {
	if !rate.IsPositive() {
		return types.Balance{}, fmt.Errorf("%w: currency rate", types.ErrPendingDependency)
	}
	return toNative(form.TotalUSD(), BountyBuffer, rate, network.Decimals), nil
}

// TipValue converts the tip to planck without buffer
func TipValue(form types.TipForm, rate decimal.Decimal, network types.Network) (types.Balance, error) {
	if !rate.IsPositive() {
		return types.Balance{}, fmt.Errorf("%w: currency rate", types.ErrPendingDependency)
	}
	return toNative(form.TipAmount, decimal.NewFromInt(1), rate, network.Decimals), nil
}

// ReferralFee is tipValue * percent / 100 truncated, zero without a referral
func ReferralFee(form types.TipForm, tipValue types.Balance) types.Balance {
	if !form.HasReferral() {
		return types.Balance{}
	}
	return tipValue.Percent(form.ReferralFeePercent)
}

// StablecoinAmount is round(usd * 10^6)
func StablecoinAmount(usd decimal.Decimal) types.Balance {
	return utils.ToPlanck(usd, types.StablecoinDecimals)
}

// SelectTipperTrack picks the first tipper track of the network whose max
// spend covers the native tip value, e.g. on Kusama up to 8.25 KSM small
// tipper and up to 33.33 KSM big tipper.
func SelectTipperTrack(network types.Network, usd, rate decimal.Decimal) (types.TipperTrack, error) {
	if !rate.IsPositive() {
		return "", fmt.Errorf("%w: currency rate", types.ErrPendingDependency)
	}
	for _, name := range []types.TipperTrack{types.SmallTipper, types.BigTipper} {
		track, err := TipperTrack(network, name)
		if err != nil {
			return "", err
		}
		// usd / rate <= limit  <=>  usd <= limit * rate, no rounding involved
		if usd.Cmp(track.MaxSpend.Mul(rate)) <= 0 {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s USD at %s USD per token", types.ErrTipTooLarge, usd, rate)
}

// TipperTrack returns the network track of a tipper track name
func TipperTrack(network types.Network, track types.TipperTrack) (types.Track, error) {
	t, ok := network.TrackByName(string(track))
	if !ok {
		return types.Track{}, fmt.Errorf("unknown tipper track \"%s\"", track)
	}
	return t, nil
}

// SelectSpenderTrack returns the first track whose max spend covers the native value
func SelectSpenderTrack(network types.Network, value types.Balance) types.Track {
	native := utils.FromPlanck(value, network.Decimals)
	for _, track := range network.Tracks {
		if track.MaxSpend.IsZero() || native.Cmp(track.MaxSpend) <= 0 {
			return track
		}
	}
	return network.Tracks[len(network.Tracks)-1]
}

// CuratorFee is the supervisors fee in planck, paid out of the bounty value
func CuratorFee(form types.RfpForm, rate decimal.Decimal, network types.Network) (types.Balance, error) {
	if !rate.IsPositive() {
		return types.Balance{}, fmt.Errorf("%w: currency rate", types.ErrPendingDependency)
	}
	return toNative(form.SupervisorsFee, decimal.NewFromInt(1), rate, network.Decimals), nil
}
