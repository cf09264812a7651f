package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Format renders a scaled integer as a human decimal string ("12.5" for 125 at 1 decimal).
func Format(x *uint256.Int, decimals uint8) string {
	if x == nil {
		return "0"
	}
	return decimal.NewFromBigInt(x.ToBig(), -int32(decimals)).String()
}

// Parse turns a decimal string into its scaled integer form. Negative values
// and more fractional digits than the precision allows are rejected.
func Parse(s string, decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d decimals", ErrPrecision, decimals)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %q", ErrUnderflow, s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrPrecision, s, decimals)
	}
	z, over := uint256.FromBig(scaled.BigInt())
	if over {
		return nil, ErrOverflow
	}
	return z, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string, decimals uint8) *uint256.Int {
	z, err := Parse(s, decimals)
	if err != nil {
		panic(err)
	}
	return z
}

// Float approximates x as a float64, only meant for metrics.
func Float(x *uint256.Int, decimals uint8) float64 {
	if x == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(x.ToBig(), -int32(decimals)).Float64()
	return f
}
