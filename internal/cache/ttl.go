package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chronicle/internal/middleware"
	"chronicle/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for key. It must not depend on the caller's identity,
// since its result is shared by everyone reading the same key.
type ComputeFunc[T any] func(ctx context.Context, key string) (T, error)

type options struct {
	now    func() time.Time
	rdb    *redis.Client
	prefix string
}

// Option configures a TTL cache.
type Option func(*options)

// WithClock replaces time.Now for expiry decisions of the in-memory backend.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRedis stores entries in Redis as JSON under prefix instead of in process memory.
func WithRedis(rdb *redis.Client, prefix string) Option {
	return func(o *options) {
		o.rdb = rdb
		o.prefix = prefix
	}
}

type entry[T any] struct {
	value   T
	expires time.Time
}

// TTL caches the result of a compute function per key for a fixed interval.
// Entries are never invalidated by writes; they expire when the interval elapses.
// Concurrent misses on one key share a single computation.
type TTL[T any] struct {
	name    string
	ttl     time.Duration
	compute ComputeFunc[T]
	opts    options

	mu      sync.Mutex
	entries map[string]entry[T]
	flight  singleflight.Group
}

// NewTTL wraps compute in a cache named name. A ttl of zero disables caching.
func NewTTL[T any](name string, ttl time.Duration, compute ComputeFunc[T], opts ...Option) *TTL[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[T]{
		name:    name,
		ttl:     ttl,
		compute: compute,
		opts:    o,
		entries: make(map[string]entry[T]),
	}
}

// Get returns the cached value for key, computing and storing it on a miss.
func (c *TTL[T]) Get(ctx context.Context, key string) (T, error) {
	if c.ttl <= 0 {
		return c.compute(ctx, key)
	}

	if v, ok := c.lookup(ctx, key); ok {
		observability.FeedCacheLookups.WithLabelValues(c.name, "hit").Inc()
		return v, nil
	}
	observability.FeedCacheLookups.WithLabelValues(c.name, "miss").Inc()

	// The computation is shared with later callers, so it must not be
	// aborted when the caller that started it goes away.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.flight.Do(key, func() (_ interface{}, err error) {
		sctx, end := observability.StartSpan(shared, "TTL", "compute",
			observability.AttrCacheName.String(c.name))
		defer func() { end(err) }()

		value, err := c.compute(sctx, key)
		if err != nil {
			return value, err
		}
		c.store(shared, key, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Purge drops every in-memory entry. Redis entries are left to expire.
func (c *TTL[T]) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}

func (c *TTL[T]) redisKey(key string) string {
	return c.opts.prefix + c.name + ":" + key
}

func (c *TTL[T]) lookup(ctx context.Context, key string) (T, bool) {
	var zero T

	if c.opts.rdb != nil {
		raw, err := c.opts.rdb.Get(ctx, c.redisKey(key)).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				observability.FeedCacheLookups.WithLabelValues(c.name, "error").Inc()
				middleware.Logger.WarnContext(ctx, "cache read failed, computing directly",
					"cache", c.name, "key", key, "error", err)
			}
			return zero, false
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry",
				"cache", c.name, "key", key, "error", err)
			return zero, false
		}
		return v, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.opts.now().Before(e.expires) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTL[T]) store(ctx context.Context, key string, value T) {
	if c.opts.rdb != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "cache encode failed", "cache", c.name, "error", err)
			return
		}
		if err := c.opts.rdb.Set(ctx, c.redisKey(key), raw, c.ttl).Err(); err != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", "cache", c.name, "key", key, "error", err)
		}
		return
	}

	now := c.opts.now()
	c.mu.Lock()
	c.sweep(now)
	c.entries[key] = entry[T]{value: value, expires: now.Add(c.ttl)}
	c.mu.Unlock()
}

// sweep drops expired entries so keys that are never read again do not
// accumulate. Callers hold c.mu.
func (c *TTL[T]) sweep(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of in-memory entries, expired ones included.
func (c *TTL[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
