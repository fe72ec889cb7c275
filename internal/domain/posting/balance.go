package posting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"postingcore/internal/core/types"
)

// BalanceChecker enforces the double-entry invariant across all lines of a
// posting. It does not look at rule sets and cannot be switched off by one.
type BalanceChecker struct {
	tolerance decimal.Decimal
	precision map[string]int32
}

// BalanceOption configures a BalanceChecker.
type BalanceOption func(*BalanceChecker)

// WithTolerance sets the absolute tolerance used for currencies without a
// configured precision. Negative values are treated as zero.
func WithTolerance(tol decimal.Decimal) BalanceOption {
	return func(c *BalanceChecker) {
		if tol.IsNegative() {
			tol = decimal.Zero
		}
		c.tolerance = tol
	}
}

// WithCurrencyPrecision makes postings in currency tolerate one minor unit of
// that currency instead of the absolute tolerance.
func WithCurrencyPrecision(currency string, decimalPlaces int32) BalanceOption {
	return func(c *BalanceChecker) {
		c.precision[normalizeCurrency(currency)] = decimalPlaces
	}
}

// NewBalanceChecker creates a checker with types.DefaultTolerance unless
// options say otherwise.
func NewBalanceChecker(opts ...BalanceOption) *BalanceChecker {
	c := &BalanceChecker{
		tolerance: types.DefaultTolerance,
		precision: make(map[string]int32),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tolerance returns the tolerance applied to postings in currency.
func (c *BalanceChecker) Tolerance(currency string) decimal.Decimal {
	if places, ok := c.precision[normalizeCurrency(currency)]; ok {
		return types.MinorUnit(places)
	}
	return c.tolerance
}

// Totals are the sums of one posting.
type Totals struct {
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Difference decimal.Decimal
}

// Sum adds up the debit and credit amounts of lines.
func Sum(lines []Line) Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, l := range lines {
		t.Debit = t.Debit.Add(l.Debit)
		t.Credit = t.Credit.Add(l.Credit)
	}
	t.Difference = t.Debit.Sub(t.Credit)
	return t
}

// Check returns the posting-scope violations of p. A posting passes when the
// absolute difference of debits and credits is at most the tolerance.
func (c *BalanceChecker) Check(p Posting) []Violation {
	if len(p.Lines) == 0 {
		return []Violation{postingViolation(CodeNoLines, "posting has no lines; no balance is possible.", nil)}
	}

	nothing := true
	for _, l := range p.Lines {
		if !l.Debit.IsZero() || !l.Credit.IsZero() {
			nothing = false
			break
		}
	}
	if nothing {
		return []Violation{postingViolation(CodeNothingPosted, "every line of the posting has a zero amount; nothing was posted.", nil)}
	}

	totals := Sum(p.Lines)
	tol := c.Tolerance(p.Currency)
	if totals.Difference.Abs().LessThanOrEqual(tol) {
		return nil
	}

	return []Violation{postingViolation(CodeUnbalanced,
		fmt.Sprintf("posting is unbalanced: debits %s, credits %s, difference %s exceeds tolerance %s.",
			totals.Debit.String(), totals.Credit.String(), totals.Difference.Abs().String(), tol.String()),
		map[string]string{
			"debit":      totals.Debit.String(),
			"credit":     totals.Credit.String(),
			"difference": totals.Difference.String(),
			"tolerance":  tol.String(),
		})}
}

func postingViolation(code Code, msg string, details map[string]string) Violation {
	return Violation{
		Scope:   ScopePosting,
		Code:    code,
		Line:    -1,
		Message: msg,
		Details: details,
	}
}

func normalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
