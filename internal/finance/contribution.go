package finance

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads an optional initial contribution. Blank input means no
// contribution; "0" is a set amount of zero.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// ApplyInitialContribution grows amount by the portfolio's total return fraction.
func ApplyInitialContribution(fraction float64, amount decimal.Decimal) (Contribution, error) {
	if amount.IsNegative() {
		return Contribution{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return Contribution{}, fmt.Errorf("contribution: return fraction %v is not finite", fraction)
	}
	final := amount.Mul(decimal.NewFromFloat(fraction)).Add(amount)
	return Contribution{
		Amount: amount,
		Final:  final,
		Gain:   final.Sub(amount),
	}, nil
}
