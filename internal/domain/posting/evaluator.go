package posting

import (
	"fmt"

	"postingcore/internal/domain/fieldrules"
)

// EvaluateLine applies a rule set to one line and returns every violation.
// It never stops at the first problem. The error is non-nil only when the
// rule set carries a status this evaluator does not handle.
func EvaluateLine(index int, rs *fieldrules.RuleSet, line Line) ([]Violation, error) {
	var out []Violation

	for _, f := range fieldrules.AllFields() {
		v, ok, err := evaluateField(index, f, rs.Status(f), line)
		if err != nil {
			return nil, fmt.Errorf("rule set %s: %w", rs.ID(), err)
		}
		if ok {
			out = append(out, v)
		}
	}

	out = append(out, evaluateAmounts(index, rs, line)...)
	return out, nil
}

func evaluateField(index int, f fieldrules.Field, status fieldrules.FieldStatus, line Line) (Violation, bool, error) {
	kind := f.Kind()
	value := line.Values.Get(f)

	violation := func(code Code, msg string) Violation {
		return Violation{
			Scope:   ScopeField,
			Code:    code,
			Line:    index,
			Field:   f,
			Status:  status,
			Message: msg,
		}
	}

	switch status {
	case fieldrules.Required:
		if value.IsEmpty(kind) {
			return violation(CodeRequired, fmt.Sprintf("field %s is required.", f)), true, nil
		}
	case fieldrules.Suppressed:
		if !value.IsEmpty(kind) {
			return violation(CodeSuppressed, fmt.Sprintf("field %s must not be provided.", f)), true, nil
		}
	case fieldrules.DisplayOnly:
		if line.Persisted == nil {
			return Violation{}, false, nil
		}
		previous := line.Persisted.Get(f)
		if !value.Equal(previous, kind) {
			v := violation(CodeDisplayOnly, fmt.Sprintf("field %s is display-only and cannot be changed.", f))
			v.Details = map[string]string{
				"previous": previous.String(),
				"value":    value.String(),
			}
			return v, true, nil
		}
	case fieldrules.Optional:
	default:
		return Violation{}, false, fmt.Errorf("%w: %d for field %s", fieldrules.ErrInvalidStatus, status, f)
	}
	return Violation{}, false, nil
}

// evaluateAmounts holds the amount checks that depend on the rule set.
// A line with no amount is checked by the validator for every line.
func evaluateAmounts(index int, rs *fieldrules.RuleSet, line Line) []Violation {
	if rs.AllowNegativeAmounts() || (!line.Debit.IsNegative() && !line.Credit.IsNegative()) {
		return nil
	}
	return []Violation{{
		Scope:   ScopeLine,
		Code:    CodeNegativeAmount,
		Line:    index,
		Message: fmt.Sprintf("line %d has a negative amount; rule set %s forbids negative amounts.", index, rs.ID()),
		Details: map[string]string{
			"debit":  line.Debit.String(),
			"credit": line.Credit.String(),
		},
	}}
}
