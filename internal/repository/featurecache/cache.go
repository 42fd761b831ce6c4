// Package featurecache caches per-dataset fetch outcomes in a bounded,
// expiring LRU with single-flight fill: concurrent requests for the same
// uncached dataset share one in-flight fetch.
package featurecache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
)

// Fetcher produces a dataset's fetch outcome on cache miss.
type Fetcher interface {
	Fetch(ctx context.Context, datasetID string) dataset.Outcome
}

// Cache is a bounded dataset cache. Entries are immutable once stored;
// unavailable outcomes are cached too and heal via TTL expiry.
type Cache struct {
	lru        *expirable.LRU[string, dataset.Outcome]
	group      singleflight.Group
	fetcher    Fetcher
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a cache with the given capacity and entry TTL.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	fetcher Fetcher,
	capacity int,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		lru:        expirable.NewLRU[string, dataset.Outcome](capacity, nil, ttl),
		fetcher:    fetcher,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Fetch returns the cached outcome for a dataset id, filling the cache
// through at most one concurrent underlying fetch per id.
func (c *Cache) Fetch(ctx context.Context, datasetID string) dataset.Outcome {
	if out, ok := c.lru.Get(datasetID); ok {
		c.incCache("hit")
		return out
	}

	c.incCache("miss")

	v, _, shared := c.group.Do(datasetID, func() (any, error) {
		// A concurrent caller may have filled the entry while this one
		// waited on the flight group.
		if out, ok := c.lru.Get(datasetID); ok {
			return out, nil
		}
		out := c.fetcher.Fetch(ctx, datasetID)
		c.lru.Add(datasetID, out)
		return out, nil
	})
	if shared {
		c.logger.Debug("dataset fetch shared across callers", zap.String("dataset_id", datasetID))
	}

	return v.(dataset.Outcome)
}

// Invalidate drops one dataset's entry.
func (c *Cache) Invalidate(datasetID string) {
	c.lru.Remove(datasetID)
}

// Len returns the number of live cache entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
