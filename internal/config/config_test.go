package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-development-32-chars-long-at-least"

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
		assert.False(t, cfg.SMTP.Enabled)
		assert.Equal(t, ":2525", cfg.SMTP.BindAddr)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Empty(t, cfg.Database.Type)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Address)
		assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
		assert.Equal(t, testSecret, cfg.JWT.Secret)
		assert.Equal(t, "blacklist", cfg.JWT.Issuer)
		assert.Equal(t, time.Hour, cfg.JWT.Expiry)
		assert.Equal(t, 5.0, cfg.Auth.RateLimit)
		assert.Equal(t, 10, cfg.Auth.RateBurst)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_SERVER_HOST", "127.0.0.1")
		t.Setenv("BLACKLIST_SERVER_PORT", "9090")
		t.Setenv("BLACKLIST_DATABASE_TYPE", "SQLite")
		t.Setenv("BLACKLIST_DATABASE_DSN", "file:test.db")
		t.Setenv("BLACKLIST_REDIS_ENABLED", "true")
		t.Setenv("BLACKLIST_REDIS_CACHE_TTL", "30s")
		t.Setenv("BLACKLIST_JWT_EXPIRY", "15m")
		t.Setenv("BLACKLIST_AUTH_USERNAME", "gateway")
		t.Setenv("BLACKLIST_AUTH_PASSWORD", "s3cret-pass")
		t.Setenv("BLACKLIST_CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:5173")
		t.Setenv("BLACKLIST_LOG_LEVEL", "debug")
		t.Setenv("BLACKLIST_SMTP_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "file:test.db", cfg.Database.DSN)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
		assert.Equal(t, 15*time.Minute, cfg.JWT.Expiry)
		assert.Equal(t, "gateway", cfg.Auth.Username)
		assert.Equal(t, "s3cret-pass", cfg.Auth.Password)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.SMTP.Enabled)
	})

	t.Run("限流为0时关闭", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_AUTH_RATE_LIMIT", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Zero(t, cfg.Auth.RateLimit)
	})

	t.Run("限流为负数失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_AUTH_RATE_LIMIT", "-1")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.rate_limit must not be negative")
	})

	t.Run("JWT密钥太短失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", "short-key")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret must be at least 32 characters long")
	})

	t.Run("使用默认JWT密钥失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", "change-me-in-production")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret cannot be the default value")
	})

	t.Run("不支持的数据库类型失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_DATABASE_TYPE", "oracle")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database.type")
	})

	t.Run("缺少DSN失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_DATABASE_TYPE", "postgres")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.dsn is required")
	})

	t.Run("无效的令牌有效期失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_JWT_EXPIRY", "forever")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid jwt.expiry")
	})

	t.Run("配置用户名但缺少密码失败", func(t *testing.T) {
		t.Setenv("BLACKLIST_JWT_SECRET", testSecret)
		t.Setenv("BLACKLIST_AUTH_USERNAME", "gateway")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.password is required")
	})
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseList(" a , ,b "))
	assert.Empty(t, parseList(" , "))
}
