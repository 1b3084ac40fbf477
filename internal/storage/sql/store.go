package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/storage"
)

// Store 基于 GORM 的关系型数据库存储实现（支持 MySQL 和 PostgreSQL）
type Store struct {
	db *gorm.DB
}

// NewStore 创建数据库存储并执行迁移
//
// 参数:
//   - cfg: 数据库配置，Type 为 "mysql" 或 "postgres"
//
// 返回值:
//   - *Store: 存储实例
//   - error: 连接或迁移失败时返回错误
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// NewStoreWithDB 用已有连接创建存储，测试用
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate 执行数据库结构迁移
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&domain.User{},
		&domain.EmailAccount{},
		&domain.Label{},
		&domain.MessageLabel{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// ========== AccountRepository ==========

// CreateAccount 创建邮箱账户
func (s *Store) CreateAccount(ctx context.Context, account *domain.EmailAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount 按 ID 获取邮箱账户
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAccountByGrantID 按授权 ID 获取邮箱账户
func (s *Store) GetAccountByGrantID(ctx context.Context, grantID string) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	err := s.db.WithContext(ctx).Where("grant_id = ?", grantID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by grant: %w", err)
	}
	return &account, nil
}

// GetAccountByEmail 按邮箱地址获取邮箱账户
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// ListAccountsByUser 列出用户的全部邮箱账户
func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.EmailAccount, error) {
	var accounts []*domain.EmailAccount
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount 更新邮箱账户
func (s *Store) UpdateAccount(ctx context.Context, account *domain.EmailAccount) error {
	result := s.db.WithContext(ctx).Model(&domain.EmailAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"email":      account.Email,
			"provider":   account.Provider,
			"is_primary": account.IsPrimary,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// SetPrimaryAccount 将指定账户设为用户的主账户，事务内完成互斥更新
func (s *Store) SetPrimaryAccount(ctx context.Context, userID, accountID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.EmailAccount{}).
			Where("id = ? AND user_id = ?", accountID, userID).
			Updates(map[string]interface{}{"is_primary": true, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return fmt.Errorf("failed to set primary account: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return storage.ErrAccountNotFound
		}

		err := tx.Model(&domain.EmailAccount{}).
			Where("user_id = ? AND id != ?", userID, accountID).
			Updates(map[string]interface{}{"is_primary": false, "updated_at": time.Now().UTC()}).Error
		if err != nil {
			return fmt.Errorf("failed to clear primary flags: %w", err)
		}
		return nil
	})
}

// DeleteAccount 删除邮箱账户
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.EmailAccount{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// ========== LabelRepository ==========

// ListLabels 按排序序号列出全部标签
func (s *Store) ListLabels(ctx context.Context) ([]*domain.Label, error) {
	var labels []*domain.Label
	err := s.db.WithContext(ctx).Order("sort_order ASC").Find(&labels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

// GetLabelByName 按名称获取标签
func (s *Store) GetLabelByName(ctx context.Context, name string) (*domain.Label, error) {
	var label domain.Label
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&label).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrLabelNotFound
		}
		return nil, fmt.Errorf("failed to get label: %w", err)
	}
	return &label, nil
}

// SeedLabels 写入缺失的预置标签，已存在的保持不变
func (s *Store) SeedLabels(ctx context.Context, labels []*domain.Label) error {
	for _, label := range labels {
		err := s.db.WithContext(ctx).Create(label).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to seed label %q: %w", label.Name, err)
		}
	}
	return nil
}

// ========== MessageLabelRepository ==========

// ApplyLabel 写入邮件标签关联
//
// (message_id, label_id) 唯一索引冲突时返回 ErrDuplicateKey。
func (s *Store) ApplyLabel(ctx context.Context, ml *domain.MessageLabel) error {
	if ml.ID == "" {
		ml.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(ml).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("failed to apply label: %w", err)
	}
	return nil
}

// ListMessageLabels 列出单封邮件的全部标签关联
func (s *Store) ListMessageLabels(ctx context.Context, messageID string) ([]*domain.MessageLabel, error) {
	var mls []*domain.MessageLabel
	err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&mls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list message labels: %w", err)
	}
	return mls, nil
}

// ListLabeledMessages 按标签分页列出账户下的邮件关联，按创建时间倒序
func (s *Store) ListLabeledMessages(ctx context.Context, accountID, labelID string, limit, offset int) ([]*domain.MessageLabel, error) {
	var mls []*domain.MessageLabel
	query := s.db.WithContext(ctx).
		Where("account_id = ? AND label_id = ?", accountID, labelID).
		Order("created_at DESC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&mls).Error; err != nil {
		return nil, fmt.Errorf("failed to list labeled messages: %w", err)
	}
	return mls, nil
}

// RemoveLabel 删除邮件标签关联
func (s *Store) RemoveLabel(ctx context.Context, messageID, labelID string) error {
	result := s.db.WithContext(ctx).
		Where("message_id = ? AND label_id = ?", messageID, labelID).
		Delete(&domain.MessageLabel{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove label: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrMessageLabelNotFound
	}
	return nil
}

// ========== UserRepository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser 按 ID 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail 按邮箱获取用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":   user.Username,
			"is_active":  user.IsActive,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// TouchLastLogin 更新最近登录时间
func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_login_at": at, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to touch last login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// Health 检查数据库连接状态
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
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
