package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"postingcore/internal/infrastructure/storage/postgres"
)

// PoolStatsFunc reads the current database pool statistics.
type PoolStatsFunc func() postgres.PoolStats

// poolCollector reads pool statistics at scrape time, so the gauges are
// never stale between scrapes.
type poolCollector struct {
	stats PoolStatsFunc

	total        *prometheus.Desc
	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	acquireTime  *prometheus.Desc
}

// NewPoolCollector returns a collector for the rule store pool.
func NewPoolCollector(stats PoolStatsFunc) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", name), help, nil, nil)
	}
	return &poolCollector{
		stats:        stats,
		total:        desc("total_conns", "Connections currently open."),
		acquired:     desc("acquired_conns", "Connections currently acquired."),
		idle:         desc("idle_conns", "Connections currently idle."),
		max:          desc("max_conns", "Maximum pool size."),
		acquireCount: desc("acquires_total", "Successful connection acquires."),
		acquireTime:  desc("acquire_seconds_total", "Time spent acquiring connections."),
	}
}

// RegisterPool registers a pool collector with reg.
func RegisterPool(reg prometheus.Registerer, stats PoolStatsFunc) error {
	return reg.Register(NewPoolCollector(stats))
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.acquired
	ch <- c.idle
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.acquireTime
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.acquireTime, prometheus.CounterValue, s.AcquireDuration.Seconds())
}
