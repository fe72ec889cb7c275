// Package fieldrules defines the business fields of a posting line, the status a
// rule set assigns to each of them, and the resolution of the effective rule set
// for a posting context.
package fieldrules

import (
	"fmt"
	"strings"
)

// Field is one of the fixed business fields of a posting line.
// The set is closed: FieldCount bounds every per-field record in the module,
// so adding a field resizes those records at compile time.
type Field int

const (
	BusinessUnit Field = iota
	BusinessArea
	TaxCode
	Reference
	DocumentHeaderText
	Assignment
	Text
	TradingPartner
	PartnerCompany
	PaymentTerms
	BaselineDate
	LocalCurrencyAmount
	ExchangeRate
	Quantity
	BaseUnit
	HouseBank
	AccountID
	CostCenter

	// FieldCount is the number of fields. Not a field.
	FieldCount
)

// ValueKind controls how emptiness of a field value is judged.
type ValueKind int

const (
	// KindCode is an identifier or code: numeric zero counts as absent.
	KindCode ValueKind = iota
	// KindText is free text.
	KindText
	// KindDate is a calendar date.
	KindDate
	// KindNumeric is a quantity or amount: zero is a legitimate value.
	KindNumeric
)

type fieldSpec struct {
	name string
	kind ValueKind
}

var fieldSpecs = [FieldCount]fieldSpec{
	BusinessUnit:        {"business-unit", KindCode},
	BusinessArea:        {"business-area", KindCode},
	TaxCode:             {"tax-code", KindCode},
	Reference:           {"reference", KindText},
	DocumentHeaderText:  {"document-header-text", KindText},
	Assignment:          {"assignment", KindText},
	Text:                {"text", KindText},
	TradingPartner:      {"trading-partner", KindCode},
	PartnerCompany:      {"partner-company", KindCode},
	PaymentTerms:        {"payment-terms", KindCode},
	BaselineDate:        {"baseline-date", KindDate},
	LocalCurrencyAmount: {"local-currency-amount", KindNumeric},
	ExchangeRate:        {"exchange-rate", KindNumeric},
	Quantity:            {"quantity", KindNumeric},
	BaseUnit:            {"base-unit", KindCode},
	HouseBank:           {"house-bank", KindCode},
	AccountID:           {"account-id", KindCode},
	CostCenter:          {"cost-center", KindCode},
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, FieldCount)
	for f := Field(0); f < FieldCount; f++ {
		m[fieldSpecs[f].name] = f
	}
	return m
}()

// AllFields returns every field in declaration order.
func AllFields() []Field {
	fields := make([]Field, FieldCount)
	for f := Field(0); f < FieldCount; f++ {
		fields[f] = f
	}
	return fields
}

// Valid reports whether f is one of the fixed fields.
func (f Field) Valid() bool {
	return f >= 0 && f < FieldCount
}

// String returns the canonical field name, e.g. "business-unit".
func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldSpecs[f].name
}

// Kind returns the value kind of the field.
func (f Field) Kind() ValueKind {
	if !f.Valid() {
		return KindText
	}
	return fieldSpecs[f].kind
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseField maps a stored field name to a Field.
// Matching ignores case and treats '_' as '-'.
func ParseField(name string) (Field, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if f, ok := fieldsByName[key]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}
