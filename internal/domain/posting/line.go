package posting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"postingcore/internal/core/apperror"
	"postingcore/internal/domain/fieldrules"
)

// Line is one row of a posting.
type Line struct {
	// Context selects the rule set for this line.
	Context fieldrules.Context

	// Values are the business field values as submitted.
	Values Values

	Debit  decimal.Decimal
	Credit decimal.Decimal

	// Persisted holds the previously stored values when the line is being
	// updated. Nil for a new posting; display-only checks need it.
	Persisted *Values
}

// IsUpdate reports whether the line replaces a stored line.
func (l Line) IsUpdate() bool { return l.Persisted != nil }

// Amount returns the signed line amount: debit positive, credit negative.
func (l Line) Amount() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// Posting is an ordered set of lines validated together.
type Posting struct {
	// Reference is the caller's document reference, used for logging only.
	Reference string

	// Currency is the posting currency code. It selects the balance
	// tolerance when currency precisions are configured.
	Currency string

	Lines []Line
}

// checkLine rejects caller errors before resolution or evaluation runs.
func checkLine(index int, line Line) error {
	if err := line.Context.Validate(); err != nil {
		return apperror.NewInvalidInput(err.Error()).
			WithCause(err).
			WithDetail("line", index)
	}
	if !line.Debit.IsZero() && !line.Credit.IsZero() {
		return apperror.NewInvalidInput(fmt.Sprintf("line %d carries both a debit and a credit amount", index)).
			WithCause(ErrAmountConflict).
			WithDetail("line", index).
			WithDetail("debit", line.Debit.String()).
			WithDetail("credit", line.Credit.String())
	}
	return nil
}

// amountViolations reports line problems that hold under any rule set,
// including when no rule set resolves.
func amountViolations(index int, line Line) []Violation {
	if !line.Debit.IsZero() || !line.Credit.IsZero() {
		return nil
	}
	return []Violation{{
		Scope:   ScopeLine,
		Code:    CodeNoAmount,
		Line:    index,
		Message: fmt.Sprintf("line %d has neither a debit nor a credit amount.", index),
	}}
}
