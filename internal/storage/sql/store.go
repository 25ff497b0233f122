package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blacklist/backend/internal/domain"
	"blacklist/backend/internal/storage"
)

// Options 连接池配置
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions 返回默认连接池配置
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store 基于 GORM 的关系型数据库存储（支持 PostgreSQL、MySQL 5.7+ 和 SQLite）
type Store struct {
	db         *gorm.DB
	driverName string
}

var _ storage.Store = (*Store)(nil)

// NewStore 创建 SQL 数据库存储，并自动建表
//
// 参数:
//   - driverName: "postgres"、"mysql" 或 "sqlite"
//   - dsn: 数据库连接字符串
//   - opts: 连接池配置
func NewStore(driverName, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	dialector, err := openDialector(driverName, dsn)
	if err != nil {
		return nil, err
	}

	return NewStoreWithDialector(driverName, dialector, opts)
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例
func NewStoreWithDialector(driverName string, dialector gorm.Dialector, opts Options) (*Store, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, driverName: driverName}

	// 启动时自动建表（表不存在时创建）
	if err := store.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// openDialector 根据驱动名称选择 GORM dialector
func openDialector(driverName, dsn string) (gorm.Dialector, error) {
	switch driverName {
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		// 时间字段需要 parseTime 才能扫描到 time.Time
		cfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
		cfg.ParseTime = true
		return mysql.Open(cfg.FormatDSN()), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, mysql, sqlite)", driverName)
	}
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.BlacklistEntry{},
		&domain.APIClient{},
	)
}

// ========== Blacklist Repository ==========

// CreateEntry 写入黑名单条目
func (s *Store) CreateEntry(ctx context.Context, entry *domain.BlacklistEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateKey(err) {
			return storage.ErrEntryExists
		}
		return err
	}
	return nil
}

// GetEntryByEmail 根据邮箱获取条目
func (s *Store) GetEntryByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	var entry domain.BlacklistEntry
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// DeleteEntryByEmail 删除指定邮箱的条目
func (s *Store) DeleteEntryByEmail(ctx context.Context, email string) error {
	result := s.db.WithContext(ctx).Where("email = ?", email).Delete(&domain.BlacklistEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrEntryNotFound
	}
	return nil
}

// ListEntries 返回全部条目，按 ID 升序
func (s *Store) ListEntries(ctx context.Context) ([]domain.BlacklistEntry, error) {
	entries := make([]domain.BlacklistEntry, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountEntries 返回条目总数
func (s *Store) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.BlacklistEntry{}).Count(&count).Error
	return count, err
}

// ========== Client Repository ==========

// CreateClient 保存 API 客户端
func (s *Store) CreateClient(ctx context.Context, client *domain.APIClient) error {
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		if isDuplicateKey(err) {
			return storage.ErrClientExists
		}
		return err
	}
	return nil
}

// GetClientByUsername 根据用户名获取客户端
func (s *Store) GetClientByUsername(ctx context.Context, username string) (*domain.APIClient, error) {
	var client domain.APIClient
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DriverName 返回当前使用的数据库驱动
func (s *Store) DriverName() string {
	return s.driverName
}

// isDuplicateKey 判断是否为唯一约束冲突
//
// 部分驱动版本不支持 TranslateError，因此同时匹配错误文本。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
