package fieldrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSpecs_EveryFieldNamed(t *testing.T) {
	require.Len(t, AllFields(), 18)

	seen := make(map[string]bool)
	for _, f := range AllFields() {
		name := f.String()
		assert.NotEmpty(t, name, "field %d has no name", int(f))
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true

		parsed, err := ParseField(name)
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestParseField_Aliases(t *testing.T) {
	f, err := ParseField(" Business_Unit ")
	require.NoError(t, err)
	assert.Equal(t, BusinessUnit, f)

	_, err = ParseField("profit-center")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestField_Kinds(t *testing.T) {
	assert.Equal(t, KindCode, BusinessUnit.Kind())
	assert.Equal(t, KindCode, AccountID.Kind())
	assert.Equal(t, KindText, DocumentHeaderText.Kind())
	assert.Equal(t, KindDate, BaselineDate.Kind())
	assert.Equal(t, KindNumeric, Quantity.Kind())
	assert.Equal(t, KindNumeric, ExchangeRate.Kind())
}

func TestField_TextRoundTrip(t *testing.T) {
	b, err := TaxCode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "tax-code", string(b))

	var f Field
	require.NoError(t, f.UnmarshalText([]byte("house-bank")))
	assert.Equal(t, HouseBank, f)

	_, err = FieldCount.MarshalText()
	assert.ErrorIs(t, err, ErrUnknownField)
}
