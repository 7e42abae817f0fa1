package types

import (
	"fmt"
	"math"
)

// Money is an amount in the currency's minor unit (whole rupees for PKR,
// which has no sub-unit in practice). Stored as an integer so fee arithmetic
// never accumulates float error.
type Money int64

// MoneyFromFloat converts a computed amount to Money, rounding half up to the
// nearest minor unit.
func MoneyFromFloat(v float64) Money {
	return Money(math.Floor(v + 0.5))
}

// Float64 returns the amount as a float, for arithmetic with rates.
func (m Money) Float64() float64 {
	return float64(m)
}

// String formats the amount for logs and messages.
func (m Money) String() string {
	return fmt.Sprintf("Rs %d", int64(m))
}
