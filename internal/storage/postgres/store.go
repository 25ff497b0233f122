package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
)

// uniqueViolation PostgreSQL 唯一约束冲突的 SQLSTATE
const uniqueViolation = "23505"

// schema 启动时执行的建表语句（表已存在时跳过）
var schema = []string{
	`CREATE TABLE IF NOT EXISTS blacklist_entries (
		id         BIGSERIAL PRIMARY KEY,
		email      VARCHAR(254) NOT NULL,
		reason     VARCHAR(500) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_blacklist_entries_email ON blacklist_entries (email)`,
	`CREATE INDEX IF NOT EXISTS idx_blacklist_entries_created_at ON blacklist_entries (created_at)`,
	`CREATE TABLE IF NOT EXISTS api_clients (
		id            VARCHAR(36) PRIMARY KEY,
		username      VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_clients_username ON api_clients (username)`,
}

// Store 基于 pgx 连接池的 PostgreSQL 原生存储实现
type Store struct {
	client *Client
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建 PostgreSQL 存储并确保表结构存在
func NewStore(ctx context.Context, client *Client) (*Store, error) {
	store := &Store{client: client}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.client.Pool().Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ========== Blacklist Repository ==========

// CreateEntry 写入黑名单条目
func (s *Store) CreateEntry(ctx context.Context, entry *domain.BlacklistEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := s.client.Pool().QueryRow(ctx,
		`INSERT INTO blacklist_entries (email, reason, created_at) VALUES ($1, $2, $3) RETURNING id`,
		entry.Email, entry.Reason, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrEntryExists
		}
		return err
	}
	return nil
}

// GetEntryByEmail 根据邮箱获取条目
func (s *Store) GetEntryByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	var entry domain.BlacklistEntry
	err := s.client.Pool().QueryRow(ctx,
		`SELECT id, email, reason, created_at FROM blacklist_entries WHERE email = $1`,
		email,
	).Scan(&entry.ID, &entry.Email, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// DeleteEntryByEmail 删除指定邮箱的条目
func (s *Store) DeleteEntryByEmail(ctx context.Context, email string) error {
	tag, err := s.client.Pool().Exec(ctx, `DELETE FROM blacklist_entries WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrEntryNotFound
	}
	return nil
}

// ListEntries 返回全部条目，按 ID 升序
func (s *Store) ListEntries(ctx context.Context) ([]domain.BlacklistEntry, error) {
	rows, err := s.client.Pool().Query(ctx,
		`SELECT id, email, reason, created_at FROM blacklist_entries ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.BlacklistEntry, 0)
	for rows.Next() {
		var entry domain.BlacklistEntry
		if err := rows.Scan(&entry.ID, &entry.Email, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountEntries 返回条目总数
func (s *Store) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	err := s.client.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM blacklist_entries`).Scan(&count)
	return count, err
}

// ========== Client Repository ==========

// CreateClient 保存 API 客户端
func (s *Store) CreateClient(ctx context.Context, client *domain.APIClient) error {
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = now
	}

	_, err := s.client.Pool().Exec(ctx,
		`INSERT INTO api_clients (id, username, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		client.ID, client.Username, client.PasswordHash, client.IsActive, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrClientExists
		}
		return err
	}
	return nil
}

// GetClientByUsername 根据用户名获取客户端
func (s *Store) GetClientByUsername(ctx context.Context, username string) (*domain.APIClient, error) {
	var client domain.APIClient
	err := s.client.Pool().QueryRow(ctx,
		`SELECT id, username, password_hash, is_active, created_at, updated_at
		 FROM api_clients WHERE username = $1`,
		username,
	).Scan(&client.ID, &client.Username, &client.PasswordHash, &client.IsActive, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx)
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
