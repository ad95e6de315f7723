package app

import (
	"time"

	"pyanalyzer/internal/engine/analyzer"

	"github.com/maypok86/otter"
)

// resultCache holds analysis results keyed by content hash.
type resultCache struct {
	inner otter.Cache[string, *analyzer.Result]
}

func newResultCache(capacity int, ttl time.Duration) (*resultCache, error) {
	builder := otter.MustBuilder[string, *analyzer.Result](capacity).CollectStats()
	if ttl > 0 {
		inner, err := builder.WithTTL(ttl).Build()
		if err != nil {
			return nil, err
		}
		return &resultCache{inner: inner}, nil
	}
	inner, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &resultCache{inner: inner}, nil
}

func (c *resultCache) Get(key string) (*analyzer.Result, bool) {
	return c.inner.Get(key)
}

func (c *resultCache) Set(key string, res *analyzer.Result) {
	c.inner.Set(key, res)
}

// Size returns the number of cached results.
func (c *resultCache) Size() int {
	return c.inner.Size()
}

func (c *resultCache) HitRatio() float64 {
	return c.inner.Stats().Ratio()
}

func (c *resultCache) Close() {
	c.inner.Close()
}
