package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
)

// EventPublisher 接收黑名单变更事件
//
// Publish 不得阻塞调用方。
type EventPublisher interface {
	Publish(event domain.BlacklistEvent)
}

// Publishers 将事件依次分发给多个订阅方
type Publishers []EventPublisher

// Publish 实现 EventPublisher
func (p Publishers) Publish(event domain.BlacklistEvent) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(event)
		}
	}
}

// BlacklistService 封装黑名单相关业务操作。
type BlacklistService struct {
	repo      storage.BlacklistRepository
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewBlacklistService 创建黑名单业务服务，publisher 可以为 nil。
func NewBlacklistService(repo storage.BlacklistRepository, publisher EventPublisher, log *zap.Logger) *BlacklistService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BlacklistService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateEntryInput 定义拉黑邮箱所需的输入。
type CreateEntryInput struct {
	Email  string
	Reason string
}

// List 返回全部黑名单条目
func (s *BlacklistService) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	if entries == nil {
		entries = []domain.BlacklistEntry{}
	}
	return entries, nil
}

// Create 将邮箱加入黑名单
func (s *BlacklistService) Create(ctx context.Context, input CreateEntryInput) (*domain.BlacklistEntry, error) {
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidateReason(input.Reason); err != nil {
		return nil, err
	}

	entry := &domain.BlacklistEntry{
		Email:     email,
		Reason:    input.Reason,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, storage.ErrEntryExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	s.log.Info("email blacklisted", zap.String("email", email), zap.Uint64("id", entry.ID))
	s.publish(domain.EventEntryCreated, email, entry)
	return entry, nil
}

// Get 查询单个条目
func (s *BlacklistService) Get(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, storage.ErrEntryNotFound
	}
	return s.repo.GetEntryByEmail(ctx, email)
}

// Delete 将邮箱移出黑名单
func (s *BlacklistService) Delete(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return storage.ErrEntryNotFound
	}
	if err := s.repo.DeleteEntryByEmail(ctx, email); err != nil {
		return err
	}

	s.log.Info("email removed from blacklist", zap.String("email", email))
	s.publish(domain.EventEntryDeleted, email, nil)
	return nil
}

// IsBlacklisted 判断邮箱是否在黑名单中
func (s *BlacklistService) IsBlacklisted(ctx context.Context, email string) (bool, error) {
	_, err := s.Get(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrEntryNotFound) {
		return false, nil
	}
	return false, err
}

// Count 返回条目总数
func (s *BlacklistService) Count(ctx context.Context) (int64, error) {
	return s.repo.CountEntries(ctx)
}

func (s *BlacklistService) publish(eventType domain.EventType, email string, entry *domain.BlacklistEntry) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.BlacklistEvent{
		Type:      eventType,
		Email:     email,
		Entry:     entry,
		Timestamp: s.now(),
	})
}
