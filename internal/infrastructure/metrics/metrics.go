// Package metrics exposes Prometheus counters for the rule cache and the
// posting validator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/domain/posting"
	"postingcore/internal/infrastructure/cache"
)

const namespace = "postingcore"

// Metrics implements cache.Metrics and posting.Observer.
type Metrics struct {
	cacheEvents    *prometheus.CounterVec
	linesValidated *prometheus.CounterVec
	postings       *prometheus.CounterVec
	violations     *prometheus.CounterVec
	gaps           *prometheus.CounterVec
}

var (
	_ cache.Metrics    = (*Metrics)(nil)
	_ posting.Observer = (*Metrics)(nil)
)

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rule_cache",
			Name:      "events_total",
			Help:      "Rule cache lookups and invalidations by event.",
		}, []string{"event"}),
		linesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_validated_total",
			Help:      "Posting lines evaluated, by resolution level and outcome.",
		}, []string{"level", "outcome"}),
		postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_validated_total",
			Help:      "Postings validated, by outcome.",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations reported, by code.",
		}, []string{"code"}),
		gaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_gaps_total",
			Help:      "Lines without a usable rule set, by failure policy.",
		}, []string{"policy"}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.cacheEvents, m.linesValidated, m.postings, m.violations, m.gaps}
}

func (m *Metrics) CacheHit()         { m.cacheEvents.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss()        { m.cacheEvents.WithLabelValues("miss").Inc() }
func (m *Metrics) CacheInvalidated() { m.cacheEvents.WithLabelValues("invalidate").Inc() }

// ObserveLine counts a line evaluated against a resolved rule set.
func (m *Metrics) ObserveLine(level fieldrules.Level, violations []posting.Violation) {
	m.linesValidated.WithLabelValues(level.String(), outcome(len(violations) == 0)).Inc()
}

// ObservePosting counts a posting and its violations by code.
func (m *Metrics) ObservePosting(result posting.Result) {
	m.postings.WithLabelValues(outcome(result.Valid())).Inc()
	for _, v := range result.Violations {
		m.violations.WithLabelValues(string(v.Code)).Inc()
	}
}

// ObserveResolutionGap counts a line with no usable rule set.
func (m *Metrics) ObserveResolutionGap(policy posting.FailurePolicy) {
	m.gaps.WithLabelValues(string(policy)).Inc()
}

func outcome(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
