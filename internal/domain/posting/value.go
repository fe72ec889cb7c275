// Package posting validates posting lines against their effective rule set and
// checks the double-entry balance of a whole posting.
package posting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"postingcore/internal/domain/fieldrules"
)

type valueType uint8

const (
	valueNone valueType = iota
	valueText
	valueNumber
	valueDate
)

// Value is an optional scalar field value. The zero Value is absent.
type Value struct {
	typ    valueType
	text   string
	number decimal.Decimal
	date   time.Time
}

// Text returns a textual value.
func Text(s string) Value { return Value{typ: valueText, text: s} }

// Number returns a numeric value.
func Number(d decimal.Decimal) Value { return Value{typ: valueNumber, number: d} }

// Date returns a date value, truncated to the calendar day in UTC.
func Date(t time.Time) Value {
	y, m, d := t.UTC().Date()
	return Value{typ: valueDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// IsSet reports whether a value was supplied at all.
func (v Value) IsSet() bool { return v.typ != valueNone }

// IsEmpty judges emptiness for a field of the given kind.
// Absent, empty and whitespace-only values are empty for every kind. Numeric
// zero is empty only for codes, including a code written as "0" or "000".
func (v Value) IsEmpty(kind fieldrules.ValueKind) bool {
	switch v.typ {
	case valueNone:
		return true
	case valueText:
		s := strings.TrimSpace(v.text)
		if s == "" {
			return true
		}
		if kind == fieldrules.KindCode {
			if d, err := decimal.NewFromString(s); err == nil && d.IsZero() {
				return true
			}
		}
		return false
	case valueNumber:
		return kind == fieldrules.KindCode && v.number.IsZero()
	case valueDate:
		return v.date.IsZero()
	default:
		return true
	}
}

// Equal compares two values for the display-only check. Numbers compare by
// value (1.50 == 1.5), text ignores surrounding whitespace, and two empty
// values are equal regardless of representation.
func (v Value) Equal(other Value, kind fieldrules.ValueKind) bool {
	if v.IsEmpty(kind) || other.IsEmpty(kind) {
		return v.IsEmpty(kind) == other.IsEmpty(kind)
	}
	if v.typ != other.typ {
		// A number and its textual spelling are the same value.
		a, okA := v.asDecimal()
		b, okB := other.asDecimal()
		return okA && okB && a.Equal(b)
	}
	switch v.typ {
	case valueText:
		return strings.TrimSpace(v.text) == strings.TrimSpace(other.text)
	case valueNumber:
		return v.number.Equal(other.number)
	case valueDate:
		return v.date.Equal(other.date)
	default:
		return true
	}
}

func (v Value) asDecimal() (decimal.Decimal, bool) {
	switch v.typ {
	case valueNumber:
		return v.number, true
	case valueText:
		d, err := decimal.NewFromString(strings.TrimSpace(v.text))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// String renders the value for messages.
func (v Value) String() string {
	switch v.typ {
	case valueText:
		return v.text
	case valueNumber:
		return v.number.String()
	case valueDate:
		return v.date.Format(time.DateOnly)
	default:
		return ""
	}
}

// Values holds one optional value per field.
type Values [fieldrules.FieldCount]Value

// Get returns the value of f.
func (vs *Values) Get(f fieldrules.Field) Value {
	if !f.Valid() {
		return Value{}
	}
	return vs[f]
}

// Set assigns the value of f and returns vs for chaining.
func (vs *Values) Set(f fieldrules.Field, v Value) *Values {
	if f.Valid() {
		vs[f] = v
	}
	return vs
}
