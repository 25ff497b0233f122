package storage

import (
	"context"
	"errors"

	"blacklist/backend/internal/domain"
)

var (
	// ErrEntryNotFound 黑名单条目不存在
	ErrEntryNotFound = errors.New("blacklist entry not found")
	// ErrEntryExists 邮箱已在黑名单中
	ErrEntryExists = errors.New("blacklist entry already exists")
	// ErrClientNotFound API 客户端不存在
	ErrClientNotFound = errors.New("api client not found")
	// ErrClientExists API 客户端用户名已存在
	ErrClientExists = errors.New("api client already exists")
)

// BlacklistRepository 定义黑名单数据存取操作。
//
// 调用方传入的邮箱必须已经规范化（小写、去空白）。
type BlacklistRepository interface {
	CreateEntry(ctx context.Context, entry *domain.BlacklistEntry) error // 写入后回填 ID 和 CreatedAt
	GetEntryByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error)
	DeleteEntryByEmail(ctx context.Context, email string) error
	ListEntries(ctx context.Context) ([]domain.BlacklistEntry, error) // 按 ID 升序
	CountEntries(ctx context.Context) (int64, error)
}

// ClientRepository 定义 API 客户端凭证存取操作。
type ClientRepository interface {
	CreateClient(ctx context.Context, client *domain.APIClient) error
	GetClientByUsername(ctx context.Context, username string) (*domain.APIClient, error)
}

// Store 聚合所有存储接口
type Store interface {
	BlacklistRepository
	ClientRepository

	// Health 检查存储健康状态
	Health() error
	// Close 释放底层连接
	Close() error
}
