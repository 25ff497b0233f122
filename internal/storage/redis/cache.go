package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"blacklist/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("entry not found in cache")

const (
	entryKeyPrefix   = "blacklist:entry:"
	deletedKeyPrefix = "blacklist:deleted:"
)

// fillScript 仅在没有删除标记且键不存在时回填
var fillScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
if redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2], "NX") then
	return 1
end
return 0
`)

// Cache 黑名单条目的 Redis 缓存
type Cache struct {
	client *Client
	ttl    time.Duration
}

// NewCache 创建缓存实例
func NewCache(client *Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func entryKey(email string) string {
	return entryKeyPrefix + email
}

func deletedKey(email string) string {
	return deletedKeyPrefix + email
}

// CacheEntry 写入条目并清除删除标记，用于新建后的写入
func (c *Cache) CacheEntry(ctx context.Context, entry *domain.BlacklistEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = c.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, entryKey(entry.Email), data, c.ttl)
		pipe.Del(ctx, deletedKey(entry.Email))
		return nil
	})
	return err
}

// FillEntry 读穿透回填，已有删除标记或更新的缓存时放弃写入
func (c *Cache) FillEntry(ctx context.Context, entry *domain.BlacklistEntry) (bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	keys := []string{entryKey(entry.Email), deletedKey(entry.Email)}
	n, err := fillScript.Run(ctx, c.client.rdb, keys, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkDeleted 清除条目并留下删除标记，标记与缓存同样的 TTL
func (c *Cache) MarkDeleted(ctx context.Context, email string) error {
	_, err := c.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, entryKey(email))
		pipe.Set(ctx, deletedKey(email), 1, c.ttl)
		return nil
	})
	return err
}

// GetCachedEntry 获取缓存的条目
func (c *Cache) GetCachedEntry(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	data, err := c.client.rdb.Get(ctx, entryKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var entry domain.BlacklistEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteCachedEntry 删除缓存的条目
func (c *Cache) DeleteCachedEntry(ctx context.Context, email string) error {
	return c.client.rdb.Del(ctx, entryKey(email)).Err()
}

// Ping 测试缓存连接
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close 关闭底层连接
func (c *Cache) Close() error {
	return c.client.Close()
}
