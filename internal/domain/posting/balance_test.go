package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postingcore/internal/core/types"
)

func TestBalanceChecker_Threshold(t *testing.T) {
	p := Posting{
		Currency: "EUR",
		Lines: []Line{
			debitLine("1", "1000.00"),
			creditLine("2", "999.99"),
		},
	}

	t.Run("difference equal to tolerance passes", func(t *testing.T) {
		c := NewBalanceChecker(WithTolerance(types.MustMoney("0.01")))
		assert.Empty(t, c.Check(p))
	})

	t.Run("difference above tolerance fails", func(t *testing.T) {
		c := NewBalanceChecker(WithTolerance(types.MustMoney("0.009")))
		violations := c.Check(p)
		require.Len(t, violations, 1)

		v := violations[0]
		assert.Equal(t, CodeUnbalanced, v.Code)
		assert.Equal(t, ScopePosting, v.Scope)
		assert.Equal(t, -1, v.Line)
		assert.Equal(t, "0.01", v.Details["difference"])
		assert.Equal(t, "0.009", v.Details["tolerance"])
		assert.Contains(t, v.Message, "difference 0.01 exceeds tolerance 0.009")
	})

	t.Run("default tolerance", func(t *testing.T) {
		assert.Empty(t, NewBalanceChecker().Check(p))
	})
}

func TestBalanceChecker_CurrencyPrecision(t *testing.T) {
	c := NewBalanceChecker(
		WithTolerance(types.MustMoney("0.01")),
		WithCurrencyPrecision("jpy", 0),
		WithCurrencyPrecision("KWD", 3),
	)

	assert.Equal(t, "1", c.Tolerance("JPY").String())
	assert.Equal(t, "0.001", c.Tolerance(" kwd ").String())
	assert.Equal(t, "0.01", c.Tolerance("EUR").String())

	kwd := Posting{Currency: "KWD", Lines: []Line{debitLine("1", "10.000"), creditLine("2", "9.990")}}
	assert.Len(t, c.Check(kwd), 1)

	jpy := Posting{Currency: "JPY", Lines: []Line{debitLine("1", "1000"), creditLine("2", "999")}}
	assert.Empty(t, c.Check(jpy))
}

func TestBalanceChecker_Structural(t *testing.T) {
	c := NewBalanceChecker()

	t.Run("no lines", func(t *testing.T) {
		violations := c.Check(Posting{})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeNoLines, violations[0].Code)
	})

	t.Run("nothing posted", func(t *testing.T) {
		violations := c.Check(Posting{Lines: []Line{debitLine("1", "0"), creditLine("2", "0.00")}})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeNothingPosted, violations[0].Code)
	})

	t.Run("single line fails", func(t *testing.T) {
		violations := c.Check(Posting{Lines: []Line{debitLine("1", "25")}})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeUnbalanced, violations[0].Code)
	})

	t.Run("many lines balance", func(t *testing.T) {
		p := Posting{Lines: []Line{
			debitLine("1", "0.10"),
			debitLine("1", "0.20"),
			creditLine("2", "0.30"),
		}}
		assert.Empty(t, c.Check(p))
	})
}

func TestSum(t *testing.T) {
	totals := Sum([]Line{debitLine("1", "10.5"), debitLine("1", "4.5"), creditLine("2", "12")})
	assert.Equal(t, "15", totals.Debit.String())
	assert.Equal(t, "12", totals.Credit.String())
	assert.Equal(t, "3", totals.Difference.String())
}

func TestWithTolerance_NegativeIsZero(t *testing.T) {
	c := NewBalanceChecker(WithTolerance(types.MustMoney("-1")))
	assert.True(t, c.Tolerance("EUR").IsZero())
}
