package posting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"postingcore/internal/core/types"
	"postingcore/internal/domain/fieldrules"
)

func TestValue_IsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		kind  fieldrules.ValueKind
		want  bool
	}{
		{"absent", Value{}, fieldrules.KindText, true},
		{"empty text", Text(""), fieldrules.KindText, true},
		{"whitespace", Text("  \t"), fieldrules.KindCode, true},
		{"text", Text("hello"), fieldrules.KindText, false},
		{"zero code text", Text("000"), fieldrules.KindCode, true},
		{"zero text is not empty for text kind", Text("0"), fieldrules.KindText, false},
		{"code", Text("100"), fieldrules.KindCode, false},
		{"zero number code", Number(types.Zero()), fieldrules.KindCode, true},
		{"zero number numeric", Number(types.Zero()), fieldrules.KindNumeric, false},
		{"number", Number(types.MustMoney("1.5")), fieldrules.KindNumeric, false},
		{"zero date", Date(time.Time{}), fieldrules.KindDate, true},
		{"date", Date(date("2024-03-31")), fieldrules.KindDate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.IsEmpty(tt.kind))
		})
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Number(types.MustMoney("1.50")).Equal(Number(types.MustMoney("1.5")), fieldrules.KindNumeric))
	assert.True(t, Text(" AB ").Equal(Text("AB"), fieldrules.KindText))
	assert.True(t, Text("").Equal(Value{}, fieldrules.KindText))
	assert.True(t, Text("2.0").Equal(Number(types.MustMoney("2")), fieldrules.KindNumeric))
	assert.True(t, Date(date("2024-01-02")).Equal(Date(date("2024-01-02").Add(5*time.Hour)), fieldrules.KindDate))

	assert.False(t, Text("A").Equal(Text("B"), fieldrules.KindText))
	assert.False(t, Text("A").Equal(Value{}, fieldrules.KindText))
	assert.False(t, Text("abc").Equal(Number(types.MustMoney("1")), fieldrules.KindText))
}

func TestValues_GetSet(t *testing.T) {
	var vs Values
	vs.Set(fieldrules.TaxCode, Text("V1")).Set(fieldrules.Quantity, Number(types.MustMoney("3")))

	assert.Equal(t, "V1", vs.Get(fieldrules.TaxCode).String())
	assert.Equal(t, "3", vs.Get(fieldrules.Quantity).String())
	assert.False(t, vs.Get(fieldrules.Text).IsSet())
	assert.False(t, vs.Get(fieldrules.FieldCount).IsSet())
}
