// Package cache provides the rule set cache and its invalidation via
// PostgreSQL LISTEN/NOTIFY.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"postingcore/internal/domain/fieldrules"
)

// Metrics receives cache events. Implemented by the metrics package.
type Metrics interface {
	CacheHit()
	CacheMiss()
	CacheInvalidated()
}

type nopMetrics struct{}

func (nopMetrics) CacheHit()         {}
func (nopMetrics) CacheMiss()        {}
func (nopMetrics) CacheInvalidated() {}

type snapshot map[fieldrules.RuleSetID]*fieldrules.RuleSet

// RuleSetCache memoizes loaded rule sets by id.
//
// Readers load an immutable snapshot through an atomic pointer and never
// take a lock. Writers (publishing a loaded rule set, invalidating) serialize
// on mu and replace the snapshot with a modified copy. Concurrent misses for
// the same id share one load.
type RuleSetCache struct {
	current atomic.Pointer[snapshot]

	mu         sync.Mutex
	generation uint64

	group   singleflight.Group
	metrics Metrics
}

// Option configures a RuleSetCache.
type Option func(*RuleSetCache)

// WithMetrics reports hits, misses and invalidations to m.
func WithMetrics(m Metrics) Option {
	return func(c *RuleSetCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewRuleSetCache creates an empty cache.
func NewRuleSetCache(opts ...Option) *RuleSetCache {
	c := &RuleSetCache{metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(c)
	}
	empty := snapshot{}
	c.current.Store(&empty)
	return c
}

var _ fieldrules.Cache = (*RuleSetCache)(nil)

// Get returns the cached rule set for id.
func (c *RuleSetCache) Get(id fieldrules.RuleSetID) (*fieldrules.RuleSet, bool) {
	rs, ok := (*c.current.Load())[id]
	return rs, ok
}

// GetOrLoad returns the cached rule set for id or loads it. Load errors are
// returned to every waiting caller and nothing is cached for them. A caller
// whose ctx ends while waiting gets ctx.Err(); the load carries on for the
// others.
func (c *RuleSetCache) GetOrLoad(ctx context.Context, id fieldrules.RuleSetID, load func(ctx context.Context) (*fieldrules.RuleSet, error)) (*fieldrules.RuleSet, error) {
	if rs, ok := c.Get(id); ok {
		c.metrics.CacheHit()
		return rs, nil
	}
	c.metrics.CacheMiss()

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	// The load is shared by every caller waiting on id, so it runs detached
	// from the cancellation of whichever caller started it. Each caller still
	// stops waiting when its own context is done.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(id), func() (any, error) {
		rs, err := load(shared)
		if err != nil {
			return nil, err
		}
		c.publish(id, rs, gen)
		return rs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*fieldrules.RuleSet), nil
	}
}

// publish adds rs to a new snapshot unless the cache was invalidated after
// the load started; a stale rule set must not survive an invalidation.
func (c *RuleSetCache) publish(id fieldrules.RuleSetID, rs *fieldrules.RuleSet, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return
	}

	old := *c.current.Load()
	next := make(snapshot, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[id] = rs
	c.current.Store(&next)
}

// Invalidate drops every cached rule set. Loads in flight finish for their
// callers but are not cached.
func (c *RuleSetCache) Invalidate() {
	c.mu.Lock()
	c.generation++
	empty := snapshot{}
	c.current.Store(&empty)
	c.mu.Unlock()

	c.metrics.CacheInvalidated()
}

// Len returns the number of cached rule sets.
func (c *RuleSetCache) Len() int {
	return len(*c.current.Load())
}

// IDs returns the cached rule set ids in no particular order.
func (c *RuleSetCache) IDs() []fieldrules.RuleSetID {
	snap := *c.current.Load()
	ids := make([]fieldrules.RuleSetID, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	return ids
}
