package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lidofinance/govtx/client/types"
)

const tokenFractionDigits = 4

// ToPlanck converts a token amount to the chain base unit, rounded to the nearest unit
func ToPlanck(amount decimal.Decimal, decimals int32) types.Balance {
	return types.BalanceFromBig(amount.Shift(decimals).Round(0).BigInt())
}

// FromPlanck converts base units back to a token amount
func FromPlanck(value types.Balance, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(value.Big(), -decimals)
}

// FormatToken renders a planck amount as "1,234.5678 KSM"
func FormatToken(value types.Balance, network types.Network) string {
	amount := FromPlanck(value, network.Decimals).Round(tokenFractionDigits)
	return groupThousands(amount.String()) + " " + network.Symbol
}

// FormatUSD renders a dollar amount with two fraction digits
func FormatUSD(value decimal.Decimal) string {
	return "$" + groupThousands(value.StringFixed(2))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + fracPart
}

var (
	rfpNumberRe = regexp.MustCompile(`(?i)(?:(?:KSM|DOT)\s*)?RFP\s*#?(\d+)`)
	rfpPrefixRe = regexp.MustCompile(`(?i)^(?:DOT|KSM)?\s*RFP\s*#?\d+:?\s*`)
)

// NextRfpNumber returns the number following the largest "RFP #N" found in titles
func NextRfpNumber(titles []string) int {
	max := 0
	for _, title := range titles {
		for _, match := range rfpNumberRe.FindAllStringSubmatch(title, -1) {
			n, err := strconv.Atoi(match[1])
			if err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}

// FormatRfpTitle builds the on-chain bounty title, e.g. "KSM RFP #12: Indexer".
// A number already present in the title is replaced.
func FormatRfpTitle(symbol string, number int, title string) string {
	title = strings.TrimSpace(rfpPrefixRe.ReplaceAllString(strings.TrimSpace(title), ""))
	if title == "" {
		return fmt.Sprintf("%s RFP #%d", symbol, number)
	}
	return fmt.Sprintf("%s RFP #%d: %s", symbol, number, title)
}
