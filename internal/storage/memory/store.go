package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
)

// Store 使用内存保存黑名单与客户端数据，主要用于开发验证。
type Store struct {
	mu      sync.RWMutex
	entries map[string]*domain.BlacklistEntry // email -> entry
	clients map[string]*domain.APIClient      // username -> client
	nextID  uint64
	nowFunc func() time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*domain.BlacklistEntry),
		clients: make(map[string]*domain.APIClient),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

var _ storage.Store = (*Store)(nil)

// ========== Blacklist Repository ==========

// CreateEntry 写入黑名单条目
func (s *Store) CreateEntry(_ context.Context, entry *domain.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Email]; exists {
		return storage.ErrEntryExists
	}

	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.nowFunc()
	}

	stored := *entry
	s.entries[entry.Email] = &stored
	return nil
}

// GetEntryByEmail 根据邮箱获取条目
func (s *Store) GetEntryByEmail(_ context.Context, email string) (*domain.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[email]
	if !ok {
		return nil, storage.ErrEntryNotFound
	}
	clone := *entry
	return &clone, nil
}

// DeleteEntryByEmail 删除指定邮箱的条目
func (s *Store) DeleteEntryByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[email]; !ok {
		return storage.ErrEntryNotFound
	}
	delete(s.entries, email)
	return nil
}

// ListEntries 返回全部条目的快照，按 ID 升序
func (s *Store) ListEntries(_ context.Context) ([]domain.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.BlacklistEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CountEntries 返回条目总数
func (s *Store) CountEntries(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// ========== Client Repository ==========

// CreateClient 保存 API 客户端
func (s *Store) CreateClient(_ context.Context, client *domain.APIClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[client.Username]; exists {
		return storage.ErrClientExists
	}
	stored := *client
	s.clients[client.Username] = &stored
	return nil
}

// GetClientByUsername 根据用户名获取客户端
func (s *Store) GetClientByUsername(_ context.Context, username string) (*domain.APIClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[username]
	if !ok {
		return nil, storage.ErrClientNotFound
	}
	clone := *client
	return &clone, nil
}

// Health 内存存储始终可用
func (s *Store) Health() error {
	return nil
}

// Close 内存存储无需释放资源
func (s *Store) Close() error {
	return nil
}
