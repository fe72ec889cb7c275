// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// DefaultTolerance is the absolute balance tolerance used when no currency
// precision is configured.
var DefaultTolerance = decimal.New(1, -2)

// NewMoneyFromString creates a Money value from a string.
// Blank input is zero; amounts in posting files are often left empty.
func NewMoneyFromString(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// MinorUnit returns one minor unit for a currency with the given number of
// decimal places: 2 -> 0.01, 0 -> 1, 3 -> 0.001.
func MinorUnit(decimalPlaces int32) Money {
	if decimalPlaces < 0 {
		decimalPlaces = 0
	}
	return decimal.New(1, -decimalPlaces)
}
