package fieldrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleSet_Complete(t *testing.T) {
	def := uniformDefinition("CASH01", Optional, map[Field]FieldStatus{BusinessUnit: Suppressed})
	def.AllowNegativeAmounts = true

	rs, err := NewRuleSet(def)
	require.NoError(t, err)

	assert.Equal(t, RuleSetID("CASH01"), rs.ID())
	assert.True(t, rs.Active())
	assert.True(t, rs.AllowNegativeAmounts())
	assert.Equal(t, Suppressed, rs.Status(BusinessUnit))
	for _, f := range AllFields()[1:] {
		assert.Equal(t, Optional, rs.Status(f), f.String())
	}
}

func TestNewRuleSet_MissingAnyFieldFails(t *testing.T) {
	for _, missing := range AllFields() {
		t.Run(missing.String(), func(t *testing.T) {
			def := uniformDefinition("R1", Optional, nil)
			def.Entries = append(def.Entries[:missing], def.Entries[missing+1:]...)

			rs, err := NewRuleSet(def)
			assert.Nil(t, rs)
			require.ErrorIs(t, err, ErrIncompleteRuleSet)
			assert.Contains(t, err.Error(), missing.String())
		})
	}
}

func TestNewRuleSet_InvalidEntries(t *testing.T) {
	t.Run("unknown status", func(t *testing.T) {
		def := uniformDefinition("R1", Optional, nil)
		def.Entries[TaxCode].Status = "hidden"
		_, err := NewRuleSet(def)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown field", func(t *testing.T) {
		def := uniformDefinition("R1", Optional, nil)
		def.Entries = append(def.Entries, FieldEntry{Field: "profit-center", Status: "optional"})
		_, err := NewRuleSet(def)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("duplicate field", func(t *testing.T) {
		def := uniformDefinition("R1", Optional, nil)
		def.Entries = append(def.Entries, FieldEntry{Field: "business_unit", Status: "required"})
		_, err := NewRuleSet(def)
		assert.ErrorIs(t, err, ErrDuplicateField)
	})

	t.Run("empty id", func(t *testing.T) {
		def := uniformDefinition("", Optional, nil)
		_, err := NewRuleSet(def)
		assert.Error(t, err)
	})
}

func TestNewRuleSet_ReportsAllProblems(t *testing.T) {
	def := uniformDefinition("R1", Optional, nil)
	def.Entries[Text].Status = "bogus"
	def.Entries = def.Entries[:len(def.Entries)-1] // drop cost-center

	_, err := NewRuleSet(def)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, ErrIncompleteRuleSet)
	assert.True(t, IsConfigurationError(err))
}

func TestRuleSet_DefinitionRoundTrip(t *testing.T) {
	rs := mustRuleSet(uniformDefinition("REV01", Required, map[Field]FieldStatus{Text: DisplayOnly}))

	again, err := NewRuleSet(rs.Definition())
	require.NoError(t, err)
	assert.Equal(t, rs.Statuses(), again.Statuses())
}
