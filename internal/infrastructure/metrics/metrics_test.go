package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/domain/posting"
)

func TestMetrics_Cache(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.CacheInvalidated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("invalidate")))
}

func TestMetrics_Validation(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ObserveLine(fieldrules.LevelAccount, nil)
	m.ObserveLine(fieldrules.LevelDocumentType, []posting.Violation{{Code: posting.CodeRequired}})
	m.ObservePosting(posting.Result{Violations: []posting.Violation{
		{Code: posting.CodeRequired},
		{Code: posting.CodeRequired},
		{Code: posting.CodeUnbalanced},
	}})
	m.ObservePosting(posting.Result{})
	m.ObserveResolutionGap(posting.FailOpen)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesValidated.WithLabelValues("account", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesValidated.WithLabelValues("document_type", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.postings.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.postings.WithLabelValues("invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.violations.WithLabelValues("field_required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("unbalanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gaps.WithLabelValues("fail_open")))
}

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.CacheHit()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "postingcore_rule_cache_events_total")

	_, err = New(reg)
	assert.Error(t, err, "registering twice must fail")
}
