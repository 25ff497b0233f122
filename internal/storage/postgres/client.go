package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"blacklist/backend/internal/config"
)

const (
	applicationName   = "blacklist"
	connectTimeout    = 10 * time.Second
	maxConnIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute
)

// ErrDSNRequired pgx 后端缺少连接串
var ErrDSNRequired = errors.New("database DSN is required")

// Client 黑名单 pgx 后端使用的连接池
type Client struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// buildPoolConfig 将数据库配置转换为 pgxpool 配置，连接数按 int32 截断
func buildPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNRequired
	}

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pgx DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = clampInt32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = min(clampInt32(cfg.MaxIdleConns), pc.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.HealthCheckPeriod = healthCheckPeriod

	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return pc, nil
}

func clampInt32(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}

// New 建立连接池并确认数据库可达
func New(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pc, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info("pgx pool ready",
		zap.String("host", pc.ConnConfig.Host),
		zap.String("database", pc.ConnConfig.Database),
		zap.Int32("max_conns", pc.MaxConns),
		zap.Int32("min_conns", pc.MinConns),
	)
	return &Client{pool: pool, log: log}, nil
}

// Pool 底层连接池
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close 关闭连接池，记录关闭时的连接统计
func (c *Client) Close() {
	stat := c.pool.Stat()
	c.pool.Close()
	c.log.Info("pgx pool closed",
		zap.Int32("total_conns", stat.TotalConns()),
		zap.Int64("acquire_count", stat.AcquireCount()),
	)
}
