// Package fixedpoint is checked unsigned 256-bit math for decimal scaled
// quantities. Every operation returns an error instead of wrapping.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// MaxDecimals is the largest precision whose unit (10^d) still fits in 256 bits.
const MaxDecimals = 77

var (
	// ErrArithmetic is the common parent of every error in this package.
	ErrArithmetic     = errors.New("arithmetic fault")
	ErrOverflow       = fmt.Errorf("%w: overflow", ErrArithmetic)
	ErrUnderflow      = fmt.Errorf("%w: underflow", ErrArithmetic)
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrArithmetic)
	ErrPrecision      = fmt.Errorf("%w: precision out of range", ErrArithmetic)
)

var units [MaxDecimals + 1]*uint256.Int

func init() {
	ten := uint256.NewInt(10)
	units[0] = uint256.NewInt(1)
	for i := 1; i <= MaxDecimals; i++ {
		units[i] = new(uint256.Int).Mul(units[i-1], ten)
	}
}

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// Unit returns 10^decimals, the fixed point representation of 1.0.
func Unit(decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d decimals", ErrPrecision, decimals)
	}
	return units[decimals].Clone(), nil
}

// ConvertPrecision rescales x from one precision to another.
// Upscaling is overflow checked, downscaling truncates toward zero.
func ConvertPrecision(x *uint256.Int, from, to uint8) (*uint256.Int, error) {
	if from > MaxDecimals || to > MaxDecimals {
		return nil, fmt.Errorf("%w: %d -> %d", ErrPrecision, from, to)
	}
	switch {
	case from == to:
		return x.Clone(), nil
	case to > from:
		return Mul(x, units[to-from])
	default:
		return Div(x, units[from-to])
	}
}

// ---------- checked primitives ----------

func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, over := new(uint256.Int).AddOverflow(x, y)
	if over {
		return nil, ErrOverflow
	}
	return z, nil
}

func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, under := new(uint256.Int).SubOverflow(x, y)
	if under {
		return nil, ErrUnderflow
	}
	return z, nil
}

func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, over := new(uint256.Int).MulOverflow(x, y)
	if over {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div is integer division rounding toward zero.
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(x, y), nil
}

// AddIsSafe and friends report whether the matching operation would succeed.
func AddIsSafe(x, y *uint256.Int) bool {
	_, over := new(uint256.Int).AddOverflow(x, y)
	return !over
}

func SubIsSafe(x, y *uint256.Int) bool { return !x.Lt(y) }

func MulIsSafe(x, y *uint256.Int) bool {
	_, over := new(uint256.Int).MulOverflow(x, y)
	return !over
}

func DivIsSafe(_, y *uint256.Int) bool { return !y.IsZero() }

// ---------- single precision decimal ops ----------

// MulDec multiplies two values sharing the same precision: x*y/10^d.
// The intermediate product must fit, the result truncates.
func MulDec(x, y *uint256.Int, decimals uint8) (*uint256.Int, error) {
	unit, err := Unit(decimals)
	if err != nil {
		return nil, err
	}
	prod, err := Mul(x, y)
	if err != nil {
		return nil, err
	}
	return Div(prod, unit)
}

// DivDec divides two values sharing the same precision: x*10^d/y.
func DivDec(x, y *uint256.Int, decimals uint8) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	unit, err := Unit(decimals)
	if err != nil {
		return nil, err
	}
	scaled, err := Mul(x, unit)
	if err != nil {
		return nil, err
	}
	return Div(scaled, y)
}

// ---------- mixed precision ops ----------
// operands are lifted to the larger of the two precisions, the op runs there
// and the result is converted to outDec.

func normalize(x *uint256.Int, xDec uint8, y *uint256.Int, yDec uint8) (*uint256.Int, *uint256.Int, uint8, error) {
	p := max(xDec, yDec)
	xn, err := ConvertPrecision(x, xDec, p)
	if err != nil {
		return nil, nil, 0, err
	}
	yn, err := ConvertPrecision(y, yDec, p)
	if err != nil {
		return nil, nil, 0, err
	}
	return xn, yn, p, nil
}

func mixed(op func(x, y *uint256.Int, p uint8) (*uint256.Int, error), x *uint256.Int, xDec uint8, y *uint256.Int, yDec, outDec uint8) (*uint256.Int, error) {
	xn, yn, p, err := normalize(x, xDec, y, yDec)
	if err != nil {
		return nil, err
	}
	z, err := op(xn, yn, p)
	if err != nil {
		return nil, err
	}
	return ConvertPrecision(z, p, outDec)
}

func AddMPDec(x *uint256.Int, xDec uint8, y *uint256.Int, yDec, outDec uint8) (*uint256.Int, error) {
	return mixed(func(a, b *uint256.Int, _ uint8) (*uint256.Int, error) { return Add(a, b) }, x, xDec, y, yDec, outDec)
}

func SubMPDec(x *uint256.Int, xDec uint8, y *uint256.Int, yDec, outDec uint8) (*uint256.Int, error) {
	return mixed(func(a, b *uint256.Int, _ uint8) (*uint256.Int, error) { return Sub(a, b) }, x, xDec, y, yDec, outDec)
}

func MulMPDec(x *uint256.Int, xDec uint8, y *uint256.Int, yDec, outDec uint8) (*uint256.Int, error) {
	return mixed(MulDec, x, xDec, y, yDec, outDec)
}

func DivMPDec(x *uint256.Int, xDec uint8, y *uint256.Int, yDec, outDec uint8) (*uint256.Int, error) {
	return mixed(DivDec, x, xDec, y, yDec, outDec)
}
