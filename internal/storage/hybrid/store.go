package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
	"blacklist/backend/internal/storage/redis"
)

// Store 混合存储实现，关系型数据库为准，Redis 缓存单条查询
//
// Redis 不可用时所有操作降级为直接访问数据库。
type Store struct {
	primary storage.Store
	cache   *redis.Cache
	log     *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建混合存储实例
func NewStore(primary storage.Store, cache *redis.Cache, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		primary: primary,
		cache:   cache,
		log:     log,
	}
}

// ========== Blacklist Repository ==========

// CreateEntry 写入数据库后缓存条目
func (s *Store) CreateEntry(ctx context.Context, entry *domain.BlacklistEntry) error {
	if err := s.primary.CreateEntry(ctx, entry); err != nil {
		return err
	}

	if err := s.cache.CacheEntry(ctx, entry); err != nil {
		// 缓存失败不影响主流程
		s.log.Warn("failed to cache blacklist entry", zap.String("email", entry.Email), zap.Error(err))
	}
	return nil
}

// GetEntryByEmail 先查 Redis，未命中再查数据库并回填
func (s *Store) GetEntryByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	entry, err := s.cache.GetCachedEntry(ctx, email)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Warn("redis lookup failed, falling back to database", zap.String("email", email), zap.Error(err))
	}

	entry, err = s.primary.GetEntryByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	// 回填不能覆盖并发删除留下的标记
	if _, err := s.cache.FillEntry(ctx, entry); err != nil {
		s.log.Warn("failed to cache blacklist entry", zap.String("email", email), zap.Error(err))
	}
	return entry, nil
}

// DeleteEntryByEmail 删除前后各清除一次缓存，删除后留下标记阻止旧数据回填
func (s *Store) DeleteEntryByEmail(ctx context.Context, email string) error {
	if err := s.cache.DeleteCachedEntry(ctx, email); err != nil {
		s.log.Warn("failed to evict blacklist entry from cache", zap.String("email", email), zap.Error(err))
	}

	if err := s.primary.DeleteEntryByEmail(ctx, email); err != nil {
		return err
	}

	if err := s.cache.MarkDeleted(ctx, email); err != nil {
		s.log.Warn("failed to mark blacklist entry deleted in cache", zap.String("email", email), zap.Error(err))
	}
	return nil
}

// ListEntries 列表查询不缓存
func (s *Store) ListEntries(ctx context.Context) ([]domain.BlacklistEntry, error) {
	return s.primary.ListEntries(ctx)
}

// CountEntries 直接查询数据库
func (s *Store) CountEntries(ctx context.Context) (int64, error) {
	return s.primary.CountEntries(ctx)
}

// ========== Client Repository ==========

// CreateClient 客户端凭证不缓存
func (s *Store) CreateClient(ctx context.Context, client *domain.APIClient) error {
	return s.primary.CreateClient(ctx, client)
}

// GetClientByUsername 客户端凭证不缓存
func (s *Store) GetClientByUsername(ctx context.Context, username string) (*domain.APIClient, error) {
	return s.primary.GetClientByUsername(ctx, username)
}

// Health 检查数据库与 Redis 连接
func (s *Store) Health() error {
	if err := s.primary.Health(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close 关闭数据库与 Redis 连接
func (s *Store) Close() error {
	dbErr := s.primary.Close()
	cacheErr := s.cache.Close()
	return errors.Join(dbErr, cacheErr)
}
