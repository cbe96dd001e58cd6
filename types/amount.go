// Package types provides common types used across the CDP ledger.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact, arbitrary-precision quantity of an asset.
// Collateral and debt balances are both Amounts; no floating point is
// involved anywhere in balance arithmetic.
type Amount = decimal.Decimal

// Zero is the zero Amount.
var Zero = decimal.Zero

// ParseAmount parses a decimal string such as "10", "0.25" or "1e-3".
// Surrounding whitespace is ignored. NaN and infinities are not
// representable and are rejected along with any other malformed input.
func ParseAmount(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Zero, fmt.Errorf("types: parse amount %q: empty string", s)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Zero, fmt.Errorf("types: parse amount %q: %w", s, err)
	}

	return d, nil
}

// MustParseAmount is like ParseAmount but panics on error. Use for
// hardcoded values.
func MustParseAmount(s string) Amount {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewAmount returns an Amount holding the integer n.
func NewAmount(n int64) Amount { return decimal.NewFromInt(n) }

// IsNegative reports whether a is strictly below zero.
func IsNegative(a Amount) bool { return a.Sign() < 0 }

// Sum adds all values. Sum of nothing is Zero.
func Sum(values ...Amount) Amount {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
