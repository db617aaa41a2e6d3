// Package safemath provides overflow-checked arithmetic for 8-decimal token
// amounts and the wide intermediate math used by the reward accumulator.
// A failed check means ledger state is already inconsistent, so every helper
// panics rather than returning an error; callers never continue past one.
package safemath

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	Scale1e6  = uint64(1000000)
	Scale1e8  = uint64(100000000)
	Scale1e16 = uint64(10000000000000000)
)

// MaxAssetAmount mirrors model.MaxAssetAmount, 2^62 - 1.
const MaxAssetAmount = int64(4611686018427387903)

func violation(format string, args ...any) {
	panic(fmt.Sprintf("arithmetic consistency violation: "+format, args...))
}

func Add(a, b int64) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		violation("addition overflow: %d + %d", a, b)
	}
	return sum
}

func Sub(a, b int64) int64 {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		violation("subtraction underflow: %d - %d", a, b)
	}
	return diff
}

func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	prod := a * b
	if prod/b != a {
		violation("multiplication overflow: %d * %d", a, b)
	}
	return prod
}

func Div(a, b int64) int64 {
	if b == 0 {
		violation("division by zero: %d / 0", a)
	}
	return a / b
}

// SubBalance is Sub with the additional guarantee that a ledger balance
// never goes negative.
func SubBalance(balance, amount int64) int64 {
	out := Sub(balance, amount)
	if out < 0 {
		violation("balance underflow: %d - %d", balance, amount)
	}
	return out
}

// MulDiv computes a * b / denominator with a 256 bit intermediate so the
// product cannot overflow. All inputs must be non-negative and the result
// must fit a valid asset amount.
func MulDiv(a, b int64, denominator uint64) int64 {
	if a < 0 || b < 0 {
		violation("negative muldiv operand: %d * %d", a, b)
	}
	if denominator == 0 {
		violation("muldiv division by zero")
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(uint64(a)), uint256.NewInt(uint64(b)))
	prod.Div(prod, uint256.NewInt(denominator))
	return ToInt64(prod)
}

// MulDivWide is MulDiv over wide accumulator values, returned unreduced.
func MulDivWide(a *uint256.Int, b uint64, denominator uint64) *uint256.Int {
	if denominator == 0 {
		violation("muldiv division by zero")
	}
	prod := new(uint256.Int).Mul(a, uint256.NewInt(b))
	return prod.Div(prod, uint256.NewInt(denominator))
}

// ToInt64 narrows a wide value back to an asset amount, checking range.
func ToInt64(v *uint256.Int) int64 {
	if !v.IsUint64() || v.Uint64() > uint64(MaxAssetAmount) {
		violation("wide value %s exceeds max asset amount", v.Dec())
	}
	return int64(v.Uint64())
}
