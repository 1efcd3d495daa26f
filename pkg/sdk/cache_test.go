package sdk_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts ...sdk.CacheOption) (*sdk.TokenCache, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	cache, err := sdk.NewTokenCache(append([]sdk.CacheOption{sdk.WithClock(mock)}, opts...)...)
	require.NoError(t, err)
	return cache, mock
}

func TestTokenCache_GetMissing(t *testing.T) {
	cache, _ := newTestCache(t)

	value, ok := cache.Get("nobody@example.com")
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestTokenCache_KeySeparation(t *testing.T) {
	cache, _ := newTestCache(t)

	cache.Set(sdk.AccessTokenKey("a@b.com"), "tok1")
	cache.Set(sdk.UserIDKey("a@b.com"), "id1")

	token, ok := cache.Get("a@b.com")
	require.True(t, ok)
	assert.Equal(t, "tok1", token)

	id, ok := cache.Get("a@b.com_id")
	require.True(t, ok)
	assert.Equal(t, "id1", id)
	assert.Equal(t, 2, cache.Len())
}

func TestTokenCache_Expiry(t *testing.T) {
	cache, mock := newTestCache(t)
	cache.Set("alice@example.com", "tok-123")

	mock.Add(8*time.Hour - time.Second)
	value, ok := cache.Get("alice@example.com")
	require.True(t, ok, "entry should still be served just before the TTL")
	assert.Equal(t, "tok-123", value)

	mock.Add(time.Second)
	_, ok = cache.Get("alice@example.com")
	assert.False(t, ok, "entry must not be served once the TTL has elapsed")
	assert.Equal(t, 0, cache.Len(), "expired entry is dropped on read")
}

func TestTokenCache_OverwriteResetsExpiry(t *testing.T) {
	cache, mock := newTestCache(t)
	cache.Set("alice@example.com", "old")

	mock.Add(7 * time.Hour)
	cache.Set("alice@example.com", "new")

	mock.Add(7 * time.Hour)
	value, ok := cache.Get("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, "new", value)
	assert.Equal(t, 1, cache.Len())
}

func TestTokenCache_SetWithTTL(t *testing.T) {
	cache, mock := newTestCache(t)

	cache.SetWithTTL("short", "a", time.Hour)
	cache.SetWithTTL("long", "b", 24*time.Hour)
	cache.SetWithTTL("default", "c", 0)

	mock.Add(time.Hour)
	_, ok := cache.Get("short")
	assert.False(t, ok)

	mock.Add(7*time.Hour - time.Second)
	_, ok = cache.Get("long")
	assert.True(t, ok)
	_, ok = cache.Get("default")
	assert.True(t, ok)

	mock.Add(time.Second)
	_, ok = cache.Get("long")
	assert.False(t, ok, "ttl is capped at the cache TTL")
	_, ok = cache.Get("default")
	assert.False(t, ok)
}

func TestTokenCache_BoundRespected(t *testing.T) {
	cache, _ := newTestCache(t)

	for i := 0; i < sdk.DefaultCacheCapacity; i++ {
		cache.Set(fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("tok%d", i))
	}
	require.Equal(t, 12, cache.Len())

	cache.Set("user12@example.com", "tok12")
	assert.Equal(t, 12, cache.Len())

	_, ok := cache.Get("user0@example.com")
	assert.False(t, ok, "least recently used entry is evicted")
	value, ok := cache.Get("user12@example.com")
	require.True(t, ok)
	assert.Equal(t, "tok12", value)
}

func TestTokenCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, _ := newTestCache(t, sdk.WithCapacity(2))

	cache.Set("a", "1")
	cache.Set("b", "2")
	_, _ = cache.Get("a")
	cache.Set("c", "3")

	_, ok := cache.Get("b")
	assert.False(t, ok)
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestNewTokenCache_InvalidOptions(t *testing.T) {
	_, err := sdk.NewTokenCache(sdk.WithCapacity(0))
	assert.Error(t, err)

	_, err = sdk.NewTokenCache(sdk.WithTTL(0))
	assert.Error(t, err)
}

func TestTokenCache_ConcurrentAccess(t *testing.T) {
	cache, _ := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("user%d@example.com", i%16)
			cache.Set(key, "tok")
			_, _ = cache.Get(key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), sdk.DefaultCacheCapacity)
}
