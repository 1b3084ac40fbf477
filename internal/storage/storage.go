package storage

import (
	"context"
	"errors"
	"time"

	"github.com/teamennovat/onebox-sub000/internal/domain"
)

// 存储层哨兵错误
var (
	ErrAccountNotFound      = errors.New("email account not found")
	ErrLabelNotFound        = errors.New("label not found")
	ErrMessageLabelNotFound = errors.New("message label not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateKey         = errors.New("duplicate key")
)

// AccountRepository 定义邮箱账户数据存取操作
type AccountRepository interface {
	// CreateAccount 创建邮箱账户
	CreateAccount(ctx context.Context, account *domain.EmailAccount) error

	// GetAccount 按 ID 获取邮箱账户
	GetAccount(ctx context.Context, id string) (*domain.EmailAccount, error)

	// GetAccountByGrantID 按授权 ID 获取邮箱账户
	GetAccountByGrantID(ctx context.Context, grantID string) (*domain.EmailAccount, error)

	// GetAccountByEmail 按邮箱地址获取邮箱账户
	GetAccountByEmail(ctx context.Context, email string) (*domain.EmailAccount, error)

	// ListAccountsByUser 列出用户的全部邮箱账户
	ListAccountsByUser(ctx context.Context, userID string) ([]*domain.EmailAccount, error)

	// UpdateAccount 更新邮箱账户
	UpdateAccount(ctx context.Context, account *domain.EmailAccount) error

	// SetPrimaryAccount 将指定账户设为用户的主账户，同时取消其余账户的主标记
	SetPrimaryAccount(ctx context.Context, userID, accountID string) error

	// DeleteAccount 删除邮箱账户
	DeleteAccount(ctx context.Context, id string) error
}

// LabelRepository 定义标签目录数据存取操作
type LabelRepository interface {
	// ListLabels 按排序序号列出全部标签
	ListLabels(ctx context.Context) ([]*domain.Label, error)

	// GetLabelByName 按名称获取标签
	GetLabelByName(ctx context.Context, name string) (*domain.Label, error)

	// SeedLabels 写入缺失的预置标签，已存在的保持不变
	SeedLabels(ctx context.Context, labels []*domain.Label) error
}

// MessageLabelRepository 定义邮件标签关联数据存取操作
type MessageLabelRepository interface {
	// ApplyLabel 写入邮件标签关联
	//
	// (message_id, label_id) 已存在时返回 ErrDuplicateKey，调用方视为成功。
	ApplyLabel(ctx context.Context, ml *domain.MessageLabel) error

	// ListMessageLabels 列出单封邮件的全部标签关联
	ListMessageLabels(ctx context.Context, messageID string) ([]*domain.MessageLabel, error)

	// ListLabeledMessages 按标签分页列出账户下的邮件关联，按创建时间倒序
	ListLabeledMessages(ctx context.Context, accountID, labelID string, limit, offset int) ([]*domain.MessageLabel, error)

	// RemoveLabel 删除邮件标签关联
	RemoveLabel(ctx context.Context, messageID, labelID string) error
}

// UserRepository 定义应用用户数据存取操作
type UserRepository interface {
	// CreateUser 创建用户
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser 按 ID 获取用户
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail 按邮箱获取用户
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateUser 更新用户
	UpdateUser(ctx context.Context, user *domain.User) error

	// TouchLastLogin 更新最近登录时间
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Store 聚合全部仓储接口
type Store interface {
	AccountRepository
	LabelRepository
	MessageLabelRepository
	UserRepository

	// Health 检查存储连接状态
	Health(ctx context.Context) error

	// Close 关闭存储连接
	Close() error
}
