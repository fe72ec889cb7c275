package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postingcore/internal/core/types"
	"postingcore/internal/domain/fieldrules"
)

func TestEvaluateLine_SuppressedValueProvided(t *testing.T) {
	line := debitLine("100000", "10")
	line.Values.Set(fieldrules.BusinessUnit, Text("100"))

	violations, err := EvaluateLine(0, cash01, line)
	require.NoError(t, err)
	require.Len(t, violations, 1)

	v := violations[0]
	assert.Equal(t, ScopeField, v.Scope)
	assert.Equal(t, CodeSuppressed, v.Code)
	assert.Equal(t, fieldrules.BusinessUnit, v.Field)
	assert.Equal(t, fieldrules.Suppressed, v.Status)
	assert.Contains(t, v.Message, "business-unit must not be provided.")
}

func TestEvaluateLine_RequiredFieldsAllReported(t *testing.T) {
	violations, err := EvaluateLine(2, rev01, creditLine("400000", "50"))
	require.NoError(t, err)
	require.Len(t, violations, 3)

	var fields []fieldrules.Field
	for _, v := range violations {
		assert.Equal(t, CodeRequired, v.Code)
		assert.Equal(t, 2, v.Line)
		assert.Contains(t, v.Message, "is required.")
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []fieldrules.Field{
		fieldrules.BusinessUnit, fieldrules.BusinessArea, fieldrules.TaxCode,
	}, fields)
}

func TestEvaluateLine_OptionalNeverViolates(t *testing.T) {
	empty := debitLine("1", "1")

	full := debitLine("1", "1")
	for _, f := range fieldrules.AllFields() {
		full.Values.Set(f, Text("X1"))
	}

	for _, line := range []Line{empty, full} {
		violations, err := EvaluateLine(0, allOptional, line)
		require.NoError(t, err)
		assert.Empty(t, violations)
	}
}

func TestEvaluateLine_CodeZeroCountsAsEmpty(t *testing.T) {
	line := creditLine("400000", "50")
	line.Values.Set(fieldrules.BusinessUnit, Text("0000"))
	line.Values.Set(fieldrules.BusinessArea, Text("20"))
	line.Values.Set(fieldrules.TaxCode, Text("V1"))

	violations, err := EvaluateLine(0, rev01, line)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, fieldrules.BusinessUnit, violations[0].Field)
}

func TestEvaluateLine_DisplayOnly(t *testing.T) {
	rs := ruleSet("DSP01", fieldrules.Optional, map[fieldrules.Field]fieldrules.FieldStatus{
		fieldrules.Assignment: fieldrules.DisplayOnly,
	})

	t.Run("new posting is not checked", func(t *testing.T) {
		line := debitLine("1", "1")
		line.Values.Set(fieldrules.Assignment, Text("A-1"))

		violations, err := EvaluateLine(0, rs, line)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("unchanged on update", func(t *testing.T) {
		line := debitLine("1", "1")
		line.Values.Set(fieldrules.Assignment, Text("A-1"))
		var prev Values
		prev.Set(fieldrules.Assignment, Text("A-1"))
		line.Persisted = &prev

		violations, err := EvaluateLine(0, rs, line)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("changed on update", func(t *testing.T) {
		line := debitLine("1", "1")
		line.Values.Set(fieldrules.Assignment, Text("A-2"))
		var prev Values
		prev.Set(fieldrules.Assignment, Text("A-1"))
		line.Persisted = &prev

		violations, err := EvaluateLine(0, rs, line)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, CodeDisplayOnly, violations[0].Code)
		assert.Contains(t, violations[0].Message, "assignment is display-only and cannot be changed.")
		assert.Equal(t, "A-1", violations[0].Details["previous"])
		assert.Equal(t, "A-2", violations[0].Details["value"])
	})

	t.Run("cleared on update", func(t *testing.T) {
		line := debitLine("1", "1")
		var prev Values
		prev.Set(fieldrules.Assignment, Text("A-1"))
		line.Persisted = &prev

		violations, err := EvaluateLine(0, rs, line)
		require.NoError(t, err)
		assert.Len(t, violations, 1)
	})
}

func TestEvaluateLine_Amounts(t *testing.T) {
	t.Run("no amount is left to the validator", func(t *testing.T) {
		line := Line{Context: fieldrules.Context{AccountID: "1"}}
		violations, err := EvaluateLine(0, allOptional, line)
		require.NoError(t, err)
		assert.Empty(t, violations)

		structural := amountViolations(3, line)
		require.Len(t, structural, 1)
		assert.Equal(t, CodeNoAmount, structural[0].Code)
		assert.Equal(t, ScopeLine, structural[0].Scope)
		assert.Equal(t, 3, structural[0].Line)
	})

	t.Run("negative forbidden", func(t *testing.T) {
		violations, err := EvaluateLine(0, allOptional, debitLine("1", "-5"))
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, CodeNegativeAmount, violations[0].Code)
	})

	t.Run("negative allowed", func(t *testing.T) {
		def := allOptional.Definition()
		def.ID = "NEG01"
		def.AllowNegativeAmounts = true
		rs, err := fieldrules.NewRuleSet(def)
		require.NoError(t, err)

		violations, err := EvaluateLine(0, rs, debitLine("1", "-5"))
		require.NoError(t, err)
		assert.Empty(t, violations)
	})
}

func TestEvaluateLine_Idempotent(t *testing.T) {
	line := creditLine("400000", "50")
	line.Values.Set(fieldrules.LocalCurrencyAmount, Number(types.MustMoney("50")))

	first, err := EvaluateLine(0, rev01, line)
	require.NoError(t, err)
	second, err := EvaluateLine(0, rev01, line)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
