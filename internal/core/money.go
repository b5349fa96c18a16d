// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values. Parsing is an explicit validation step:
// malformed input is reported as an *AmountError instead of being coerced to zero.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// AmountError describes why an amount string was rejected.
type AmountError struct {
	Input  string
	Reason string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidAmount) match any *AmountError.
func (e *AmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

// ParseAmount converts a decimal string to a decimal.Decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Empty input,
// thousands separators, NaN/Inf and exponents are rejected. The sign is kept as
// given; the transaction type carries the direction.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,34") -> 12.34, nil
//   ParseAmount("abc")   -> 0, *AmountError
func ParseAmount(s string) (decimal.Decimal, error) {
	in := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &AmountError{Input: in, Reason: "empty"}
	}
	if strings.Count(s, ",")+strings.Count(s, ".") > 1 {
		return decimal.Zero, &AmountError{Input: in, Reason: "more than one decimal separator"}
	}
	s = strings.ReplaceAll(s, ",", ".")
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 {
		return decimal.Zero, &AmountError{Input: in, Reason: "repeated sign"}
	}
	if digits == "" || digits == "." {
		return decimal.Zero, &AmountError{Input: in, Reason: "no digits"}
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, &AmountError{Input: in, Reason: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &AmountError{Input: in, Reason: err.Error()}
	}
	return d, nil
}
