package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blacklist/backend/internal/config"
	"blacklist/backend/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCache_RoundTrip(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, err := cache.GetCachedEntry(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)

	entry := &domain.BlacklistEntry{ID: 3, Email: "a@example.com", Reason: "spam", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, cache.CacheEntry(ctx, entry))
	assert.Equal(t, time.Minute, mr.TTL("blacklist:entry:a@example.com"))

	got, err := cache.GetCachedEntry(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Reason, got.Reason)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, cache.DeleteCachedEntry(ctx, "a@example.com"))
	_, err = cache.GetCachedEntry(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_DefaultTTL(t *testing.T) {
	cache, mr := newTestCache(t, 0)

	require.NoError(t, cache.CacheEntry(context.Background(), &domain.BlacklistEntry{Email: "b@example.com"}))
	assert.Equal(t, 10*time.Minute, mr.TTL("blacklist:entry:b@example.com"))
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, cache.CacheEntry(ctx, &domain.BlacklistEntry{Email: "c@example.com"}))
	mr.FastForward(2 * time.Second)

	_, err := cache.GetCachedEntry(ctx, "c@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_FillRespectsDeleteMarker(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	entry := &domain.BlacklistEntry{ID: 4, Email: "d@example.com"}

	require.NoError(t, cache.MarkDeleted(ctx, "d@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("blacklist:deleted:d@example.com"))

	filled, err := cache.FillEntry(ctx, entry)
	require.NoError(t, err)
	assert.False(t, filled)
	_, err = cache.GetCachedEntry(ctx, "d@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// 新建写入清除标记，之后回填不覆盖已有缓存
	require.NoError(t, cache.CacheEntry(ctx, entry))
	assert.False(t, mr.Exists("blacklist:deleted:d@example.com"))

	filled, err = cache.FillEntry(ctx, &domain.BlacklistEntry{ID: 99, Email: "d@example.com"})
	require.NoError(t, err)
	assert.False(t, filled)
	got, err := cache.GetCachedEntry(ctx, "d@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.ID)
}

func TestCache_FillWritesOnMiss(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)

	filled, err := cache.FillEntry(context.Background(), &domain.BlacklistEntry{ID: 5, Email: "e@example.com"})
	require.NoError(t, err)
	assert.True(t, filled)
	assert.Equal(t, time.Minute, mr.TTL("blacklist:entry:e@example.com"))
}

func TestNew_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), &config.RedisConfig{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = New(context.Background(), &config.RedisConfig{Address: addr}, nil)
	assert.Error(t, err)
}
