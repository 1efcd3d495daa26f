package sdk

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	// DefaultCacheCapacity bounds the number of cached tokens and ids.
	DefaultCacheCapacity = 12

	// DefaultCacheTTL matches the identity provider's access token lifetime.
	DefaultCacheTTL = 8 * time.Hour
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// TokenCache is a bounded, time-expiring store of access tokens and user ids
// keyed by user identity. It never performs I/O.
//
// Expired entries are dropped lazily when read. When a new key is added to a
// full cache the least recently used entry is evicted. TokenCache is safe for
// concurrent use.
type TokenCache struct {
	mu    sync.Mutex
	lru   *simplelru.LRU[string, cacheEntry]
	clock clock.Clock
	ttl   time.Duration
}

type cacheOptions struct {
	capacity int
	ttl      time.Duration
	clock    clock.Clock
}

// CacheOption configures a TokenCache.
type CacheOption func(*cacheOptions)

// WithClock overrides the clock used to stamp and check expiry.
func WithClock(c clock.Clock) CacheOption {
	return func(o *cacheOptions) {
		o.clock = c
	}
}

// WithCapacity overrides the maximum number of entries.
func WithCapacity(n int) CacheOption {
	return func(o *cacheOptions) {
		o.capacity = n
	}
}

// WithTTL overrides the maximum lifetime of an entry.
func WithTTL(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.ttl = d
	}
}

// NewTokenCache creates an empty cache. Defaults: 12 entries, 8 hours, wall clock.
func NewTokenCache(optFns ...CacheOption) (*TokenCache, error) {
	opts := cacheOptions{
		capacity: DefaultCacheCapacity,
		ttl:      DefaultCacheTTL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.clock == nil {
		opts.clock = clock.New()
	}
	if opts.ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", opts.ttl)
	}

	store, err := simplelru.NewLRU[string, cacheEntry](opts.capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}

	return &TokenCache{
		lru:   store,
		clock: opts.clock,
		ttl:   opts.ttl,
	}, nil
}

// Get returns the cached value for key if present and not expired.
func (c *TokenCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return "", false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return "", false
	}
	return entry.value, true
}

// Set stores value under key, resetting its expiry to now plus the cache TTL.
func (c *TokenCache) Set(key, value string) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key with a lifetime of ttl, never longer than
// the cache TTL. A non-positive ttl uses the cache TTL.
func (c *TokenCache) SetWithTTL(key, value string, ttl time.Duration) {
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, cacheEntry{
		value:     value,
		expiresAt: c.clock.Now().Add(ttl),
	})
}

func (c *TokenCache) now() time.Time {
	return c.clock.Now()
}

// Len returns the number of entries held, including expired entries not yet read.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
