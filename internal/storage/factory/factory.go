// Package factory 根据配置选择并初始化存储后端。
package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blacklist/backend/internal/config"
	"blacklist/backend/internal/storage"
	"blacklist/backend/internal/storage/hybrid"
	"blacklist/backend/internal/storage/memory"
	"blacklist/backend/internal/storage/postgres"
	"blacklist/backend/internal/storage/redis"
	sqlstore "blacklist/backend/internal/storage/sql"
)

// Open 打开配置指定的存储，启用 Redis 时在外层包装缓存
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	primary, err := openPrimary(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if !cfg.Redis.Enabled {
		return primary, nil
	}

	client, err := redis.New(ctx, &cfg.Redis, log)
	if err != nil {
		_ = primary.Close()
		return nil, err
	}

	log.Info("redis cache enabled", zap.Duration("ttl", cfg.Redis.CacheTTL))
	return hybrid.NewStore(primary, redis.NewCache(client, cfg.Redis.CacheTTL), log), nil
}

func openPrimary(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (storage.Store, error) {
	switch cfg.Type {
	case "":
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil

	case "pgx":
		client, err := postgres.New(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		store, err := postgres.NewStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		log.Info("using native postgres storage")
		return store, nil

	case "postgres", "mysql", "sqlite":
		store, err := sqlstore.NewStore(cfg.Type, cfg.DSN, sqlstore.Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Type, err)
		}
		log.Info("using database storage", zap.String("type", cfg.Type))
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}
