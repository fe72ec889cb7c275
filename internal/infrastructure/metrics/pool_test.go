package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postingcore/internal/infrastructure/storage/postgres"
)

func TestPoolCollector(t *testing.T) {
	stats := postgres.PoolStats{
		TotalConns:      3,
		AcquiredConns:   2,
		IdleConns:       1,
		MaxConns:        8,
		AcquireCount:    42,
		AcquireDuration: 1500 * time.Millisecond,
	}
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, RegisterPool(reg, func() postgres.PoolStats { return stats }))

	expected := `
# HELP postingcore_db_pool_acquired_conns Connections currently acquired.
# TYPE postingcore_db_pool_acquired_conns gauge
postingcore_db_pool_acquired_conns 2
# HELP postingcore_db_pool_acquire_seconds_total Time spent acquiring connections.
# TYPE postingcore_db_pool_acquire_seconds_total counter
postingcore_db_pool_acquire_seconds_total 1.5
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"postingcore_db_pool_acquired_conns", "postingcore_db_pool_acquire_seconds_total")
	assert.NoError(t, err)
	assert.Equal(t, 6, testutil.CollectAndCount(NewPoolCollector(func() postgres.PoolStats { return stats })))

	// Values are read on every scrape.
	stats.AcquiredConns = 5
	err = testutil.GatherAndCompare(reg, strings.NewReader(strings.ReplaceAll(expected, "conns 2", "conns 5")),
		"postingcore_db_pool_acquired_conns", "postingcore_db_pool_acquire_seconds_total")
	assert.NoError(t, err)
}
