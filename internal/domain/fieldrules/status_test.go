package fieldrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want FieldStatus
	}{
		{"suppressed", Suppressed},
		{"REQUIRED", Required},
		{" optional ", Optional},
		{"display_only", DisplayOnly},
		{"display-only", DisplayOnly},
		{"DisplayOnly", DisplayOnly},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFieldStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFieldStatus_RejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "hidden", "mandatory", "0"} {
		_, err := ParseFieldStatus(raw)
		assert.ErrorIs(t, err, ErrInvalidStatus, "raw=%q", raw)
	}
}

func TestFieldStatus_StringRoundTrip(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.Valid())
		parsed, err := ParseFieldStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.False(t, statusUnset.Valid())
}
