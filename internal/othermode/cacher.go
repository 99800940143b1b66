package othermode

import (
	"github.com/bluele/gcache"

	"transitscan/internal/transit"
)

// DefaultCacheSize is the number of stop pairs a profile caches by default.
const DefaultCacheSize = 10000

type pair struct {
	from, to transit.Stop
}

// Cacher memoizes the times of another generator per stop pair in a bounded
// LRU cache. It is safe for concurrent use by several scans.
type Cacher struct {
	fallback Generator
	cache    gcache.Cache
}

// NewCacher wraps fallback with an LRU cache holding up to size pairs.
func NewCacher(fallback Generator, size int) *Cacher {
	c := &Cacher{fallback: fallback}
	c.cache = gcache.New(size).
		LRU().
		LoaderFunc(func(key interface{}) (interface{}, error) {
			p := key.(pair)
			return c.fallback.TimeBetween(p.from, p.to), nil
		}).
		Build()
	return c
}

func (c *Cacher) TimeBetween(from, to transit.Stop) uint32 {
	v, err := c.cache.Get(pair{from, to})
	if err != nil {
		return c.fallback.TimeBetween(from, to)
	}
	return v.(uint32)
}

func (c *Cacher) TimesBetween(from transit.Stop, to []transit.Stop) map[transit.StopID]uint32 {
	return timesBetween(c, from, to)
}

func (c *Cacher) Range() float64 { return c.fallback.Range() }

// Identifier is the fallback's: caching does not change the journeys produced.
func (c *Cacher) Identifier() string { return c.fallback.Identifier() }

func (c *Cacher) Source(from, to transit.Stop) Generator { return c.fallback.Source(from, to) }

// Stats returns the number of cached pairs and the hit rate so far.
func (c *Cacher) Stats() (size int, hitRate float64) {
	return c.cache.Len(false), c.cache.HitRate()
}
