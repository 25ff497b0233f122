package hybrid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
	"blacklist/backend/internal/storage/memory"
	"blacklist/backend/internal/storage/redis"
)

func setupHybrid(t *testing.T) (*Store, *memory.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	cache := redis.NewCache(redis.NewFromClient(rdb, nil), time.Minute)
	primary := memory.NewStore()
	store := NewStore(primary, cache, nil)

	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, primary, mr
}

func TestHybridStore_CreateCachesEntry(t *testing.T) {
	ctx := context.Background()
	store, _, mr := setupHybrid(t)

	entry := &domain.BlacklistEntry{Email: "a@example.com", Reason: "spam"}
	require.NoError(t, store.CreateEntry(ctx, entry))

	assert.True(t, mr.Exists("blacklist:entry:a@example.com"))
	ttl := mr.TTL("blacklist:entry:a@example.com")
	assert.Equal(t, time.Minute, ttl)
}

func TestHybridStore_GetServesFromCache(t *testing.T) {
	ctx := context.Background()
	store, primary, mr := setupHybrid(t)

	// 直接写入底层存储，第一次查询回填缓存
	require.NoError(t, primary.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com", Reason: "spam"}))
	assert.False(t, mr.Exists("blacklist:entry:a@example.com"))

	got, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "spam", got.Reason)
	assert.True(t, mr.Exists("blacklist:entry:a@example.com"))

	// 绕过混合存储删除，缓存仍然命中
	require.NoError(t, primary.DeleteEntryByEmail(ctx, "a@example.com"))
	cached, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, got.ID, cached.ID)
}

func TestHybridStore_DeleteEvictsCache(t *testing.T) {
	ctx := context.Background()
	store, _, mr := setupHybrid(t)

	require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com"}))
	require.NoError(t, store.DeleteEntryByEmail(ctx, "a@example.com"))
	assert.False(t, mr.Exists("blacklist:entry:a@example.com"))

	_, err := store.GetEntryByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrEntryNotFound)

	assert.ErrorIs(t, store.DeleteEntryByEmail(ctx, "a@example.com"), storage.ErrEntryNotFound)
}

func TestHybridStore_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	store, _, mr := setupHybrid(t)

	mr.Close()

	entry := &domain.BlacklistEntry{Email: "a@example.com"}
	require.NoError(t, store.CreateEntry(ctx, entry))

	got, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	assert.Error(t, store.Health())
}

func TestHybridStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setupHybrid(t)

	require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com"}))
	require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "b@example.com"}))

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	count, err := store.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.CreateClient(ctx, &domain.APIClient{ID: "c-1", Username: "gateway"}))
	client, err := store.GetClientByUsername(ctx, "gateway")
	require.NoError(t, err)
	assert.Equal(t, "c-1", client.ID)

	assert.NoError(t, store.Health())
}

// pausingStore 第一次查询加载数据后暂停，等待放行
type pausingStore struct {
	*memory.Store
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingStore) GetEntryByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	entry, err := p.Store.GetEntryByEmail(ctx, email)
	p.once.Do(func() {
		close(p.loaded)
		<-p.release
	})
	return entry, err
}

func TestHybridStore_ConcurrentDeleteBlocksStaleFill(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	primary := &pausingStore{
		Store:   memory.NewStore(),
		loaded:  make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := redis.NewCache(redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), nil), time.Minute)
	store := NewStore(primary, cache, nil)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, primary.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com", Reason: "spam"}))

	// 查询未命中缓存，加载数据库记录后暂停
	readDone := make(chan error, 1)
	go func() {
		_, err := store.GetEntryByEmail(ctx, "a@example.com")
		readDone <- err
	}()
	<-primary.loaded

	// 暂停期间删除，然后让查询继续回填
	require.NoError(t, store.DeleteEntryByEmail(ctx, "a@example.com"))
	close(primary.release)
	require.NoError(t, <-readDone)

	assert.False(t, mr.Exists("blacklist:entry:a@example.com"))
	_, err := store.GetEntryByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, storage.ErrEntryNotFound)
}

func TestHybridStore_RecreateAfterDelete(t *testing.T) {
	ctx := context.Background()
	store, _, mr := setupHybrid(t)

	require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com", Reason: "first"}))
	require.NoError(t, store.DeleteEntryByEmail(ctx, "a@example.com"))
	assert.True(t, mr.Exists("blacklist:deleted:a@example.com"))

	require.NoError(t, store.CreateEntry(ctx, &domain.BlacklistEntry{Email: "a@example.com", Reason: "second"}))
	assert.False(t, mr.Exists("blacklist:deleted:a@example.com"))

	got, err := store.GetEntryByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Reason)
}
