package posting

import (
	"encoding/json"
	"errors"

	"postingcore/internal/domain/fieldrules"
)

// ErrAmountConflict: a line carries both a debit and a credit amount.
var ErrAmountConflict = errors.New("line has both debit and credit")

// Scope says what a violation is about.
type Scope string

const (
	ScopeField   Scope = "field"
	ScopeLine    Scope = "line"
	ScopePosting Scope = "posting"
)

// Code is a machine-readable violation identifier.
type Code string

const (
	CodeRequired            Code = "field_required"
	CodeSuppressed          Code = "field_suppressed"
	CodeDisplayOnly         Code = "field_display_only"
	CodeNegativeAmount      Code = "negative_amount"
	CodeNoAmount            Code = "no_amount"
	CodeRuleSetUnresolvable Code = "rule_set_unresolvable"
	CodeNoLines             Code = "no_lines"
	CodeNothingPosted       Code = "nothing_posted"
	CodeUnbalanced          Code = "unbalanced"
)

// Violation is one reason a posting may not proceed.
type Violation struct {
	Scope Scope
	Code  Code

	// Line is the zero-based line index; -1 for posting scope.
	Line int

	// Field and Status are set for field scope only.
	Field  fieldrules.Field
	Status fieldrules.FieldStatus

	Message string

	// Details carries values useful to the caller, e.g. balance totals.
	Details map[string]string
}

type violationJSON struct {
	Scope   Scope             `json:"scope"`
	Code    Code              `json:"code"`
	Line    *int              `json:"line,omitempty"`
	Field   string            `json:"field,omitempty"`
	Status  string            `json:"status,omitempty"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// MarshalJSON renders field and status by name and omits them outside
// field scope.
func (v Violation) MarshalJSON() ([]byte, error) {
	out := violationJSON{
		Scope:   v.Scope,
		Code:    v.Code,
		Message: v.Message,
		Details: v.Details,
	}
	if v.Scope != ScopePosting {
		line := v.Line
		out.Line = &line
	}
	if v.Scope == ScopeField {
		out.Field = v.Field.String()
		out.Status = v.Status.String()
	}
	return json.Marshal(out)
}

// Result is the outcome of a validation call. An empty result is valid.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether no violation was found.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// ForLine returns the violations of one line.
func (r Result) ForLine(index int) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Scope != ScopePosting && v.Line == index {
			out = append(out, v)
		}
	}
	return out
}

// ForField returns the field violations naming f, across all lines.
func (r Result) ForField(f fieldrules.Field) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Scope == ScopeField && v.Field == f {
			out = append(out, v)
		}
	}
	return out
}

// Codes lists the violation codes in order; handy for logs and tests.
func (r Result) Codes() []Code {
	codes := make([]Code, len(r.Violations))
	for i, v := range r.Violations {
		codes[i] = v.Code
	}
	return codes
}

func (r *Result) add(vs ...Violation) {
	r.Violations = append(r.Violations, vs...)
}

// MarshalJSON adds the valid flag next to the violations.
func (r Result) MarshalJSON() ([]byte, error) {
	violations := r.Violations
	if violations == nil {
		violations = []Violation{}
	}
	return json.Marshal(struct {
		Valid      bool        `json:"valid"`
		Violations []Violation `json:"violations"`
	}{Valid: r.Valid(), Violations: violations})
}
