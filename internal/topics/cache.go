package topics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/resilience"
)

const keyPrefix = "topics:"

// Remote is the shared cache tier; *redis.Client satisfies it. A missing
// key is reported with ok false and a nil error.
type Remote interface {
	GetVector(ctx context.Context, key string) ([]float64, bool, error)
	SetVector(ctx context.Context, key string, v []float64, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// CacheOptions sizes the cache. BuildID scopes keys so vectors of one corpus
// build are never served for another.
type CacheOptions struct {
	BuildID string
	Size    int
	TTL     time.Duration
	Remote  Remote
	Metrics *metrics.Metrics
}

// Cache memoizes a Lookup in an in-process LRU and, optionally, a remote
// tier guarded by a circuit breaker. Concurrent misses for one position run
// the underlying lookup once.
type Cache struct {
	next    Lookup
	local   *expirable.LRU[int, []float64]
	remote  Remote
	breaker *resilience.Breaker
	group   singleflight.Group
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCache(next Lookup, opts CacheOptions) *Cache {
	if opts.Size <= 0 {
		opts.Size = 4096
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	buildID := opts.BuildID
	if buildID == "" {
		buildID = "default"
	}
	return &Cache{
		next:    next,
		local:   expirable.NewLRU[int, []float64](opts.Size, nil, opts.TTL),
		remote:  opts.Remote,
		breaker: resilience.NewBreaker("topic-cache-redis", 3, 30*time.Second),
		prefix:  keyPrefix + buildID + ":",
		ttl:     opts.TTL,
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "topic-cache", "build_id", buildID),
	}
}

func (c *Cache) NumTopics() int { return c.next.NumTopics() }

// TopicsAt returns a copy of the cached vector, computing it on a miss.
func (c *Cache) TopicsAt(ctx context.Context, pos int) ([]float64, error) {
	if v, ok := c.local.Get(pos); ok {
		c.hits.Add(1)
		c.metrics.CacheLookup("lru", true)
		return clone(v), nil
	}
	c.metrics.CacheLookup("lru", false)

	key := c.buildKey(pos)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.local.Get(pos); ok {
			return v, nil
		}
		if v, ok := c.getRemote(ctx, key); ok {
			c.local.Add(pos, v)
			return v, nil
		}
		c.misses.Add(1)
		v, err := c.next.TopicsAt(ctx, pos)
		if err != nil {
			return nil, err
		}
		v = clone(v)
		c.local.Add(pos, v)
		c.setRemote(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(val.([]float64)), nil
}

func (c *Cache) getRemote(ctx context.Context, key string) ([]float64, bool) {
	if c.remote == nil {
		return nil, false
	}
	var (
		v     []float64
		found bool
	)
	err := c.breaker.Do(func() error {
		var err error
		v, found, err = c.remote.GetVector(ctx, key)
		return err
	})
	if err != nil {
		c.logger.Warn("remote cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.metrics.CacheLookup("redis", false)
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheLookup("redis", true)
	return v, true
}

func (c *Cache) setRemote(ctx context.Context, key string, v []float64) {
	if c.remote == nil {
		return
	}
	if err := c.breaker.Do(func() error {
		return c.remote.SetVector(ctx, key, v, c.ttl)
	}); err != nil {
		c.logger.Warn("remote cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached vector of this build.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.remote == nil {
		return nil
	}
	deleted, err := c.remote.DeletePrefix(ctx, c.prefix)
	if err != nil {
		return fmt.Errorf("invalidating topic cache: %w", err)
	}
	c.logger.Info("topic cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hits across both tiers and lookups that reached the model.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) buildKey(pos int) string {
	return c.prefix + strconv.Itoa(pos)
}

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
