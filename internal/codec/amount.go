package codec

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/windingtree/wt-client/pkg/types"
)

const (
	// PriceDecimals is the fixed-point precision of fiat prices on the ledger.
	PriceDecimals = 2
	// TokenDecimals is the precision of the booking token.
	TokenDecimals = 18
)

// ParsePrice converts a decimal fiat amount ("100.00") to hundredths.
func ParsePrice(s string) (*big.Int, error) {
	return parseFixed(s, PriceDecimals)
}

// FormatPrice renders hundredths with exactly two decimals.
func FormatPrice(v *big.Int) string {
	if v == nil {
		v = new(big.Int)
	}
	whole, frac := splitFixed(v, PriceDecimals)
	return whole + "." + frac
}

// ParseToken converts a decimal token amount ("1.5") to base units.
func ParseToken(s string) (*big.Int, error) {
	return parseFixed(s, TokenDecimals)
}

// FormatToken renders base units as a decimal token amount without trailing zeros.
func FormatToken(v *big.Int) string {
	if v == nil {
		return "0"
	}
	whole, frac := splitFixed(v, TokenDecimals)
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func parseFixed(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(types.ErrEncoding, "empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, errors.Wrapf(types.ErrEncoding, "negative amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, errors.Wrapf(types.ErrEncoding, "amount %q has more than %d decimals", s, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || !isDigits(whole) || !isDigits(frac) {
		return nil, errors.Wrapf(types.ErrEncoding, "invalid amount %q", s)
	}
	return v, nil
}

func splitFixed(v *big.Int, decimals int) (string, string) {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, scale, new(big.Int))
	f := frac.Abs(frac).String()
	return whole.String(), strings.Repeat("0", decimals-len(f)) + f
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
