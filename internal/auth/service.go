package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blacklist/backend/internal/auth/jwt"
	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
)

var (
	// ErrInvalidCredentials 凭证无效（用户不存在或密码错误）
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrClientInactive 客户端已被禁用
	ErrClientInactive = errors.New("client is inactive")
	// ErrClientExists 用户名已被注册
	ErrClientExists = errors.New("client already exists")
)

// 用户不存在时仍执行一次比较，避免通过响应时间枚举用户名
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("blacklist-dummy-password"), bcrypt.DefaultCost)

// Service 客户端认证与令牌签发服务
type Service struct {
	clients storage.ClientRepository
	tokens  *jwt.Manager
	log     *zap.Logger
}

// NewService 创建认证服务
func NewService(clients storage.ClientRepository, tokens *jwt.Manager, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		clients: clients,
		tokens:  tokens,
		log:     log,
	}
}

// Authenticate 校验用户名和密码
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.APIClient, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	client, err := s.clients.GetClientByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrClientNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	if !CheckPassword(password, client.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !client.IsActive {
		return nil, ErrClientInactive
	}

	return client, nil
}

// RegisterClient 注册新的 API 客户端
func (s *Service) RegisterClient(ctx context.Context, username, password string) (*domain.APIClient, error) {
	username = strings.TrimSpace(username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	client := &domain.APIClient{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.clients.CreateClient(ctx, client); err != nil {
		if errors.Is(err, storage.ErrClientExists) {
			return nil, ErrClientExists
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.log.Info("api client registered", zap.String("username", username), zap.String("client_id", client.ID))
	return client, nil
}

// EnsureClient 启动时确保配置的客户端存在，已存在时不做修改
func (s *Service) EnsureClient(ctx context.Context, username, password string) error {
	_, err := s.clients.GetClientByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		s.log.Debug("bootstrap client already present", zap.String("username", username))
		return nil
	}
	if !errors.Is(err, storage.ErrClientNotFound) {
		return fmt.Errorf("failed to look up bootstrap client: %w", err)
	}

	_, err = s.RegisterClient(ctx, username, password)
	if errors.Is(err, ErrClientExists) {
		// 并发启动的实例已经创建
		return nil
	}
	return err
}

// IssueToken 校验凭证并签发访问令牌
func (s *Service) IssueToken(ctx context.Context, username, password string) (*jwt.Token, error) {
	client, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(client.Username)
	if err != nil {
		return nil, err
	}

	s.log.Info("access token issued", zap.String("username", client.Username))
	return token, nil
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
