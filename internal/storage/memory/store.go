package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/storage"
)

// Store 内存存储实现，用于开发与测试
type Store struct {
	mu sync.RWMutex

	accounts      map[string]*domain.EmailAccount // account ID -> account
	labels        map[string]*domain.Label        // label ID -> label
	messageLabels map[string]*domain.MessageLabel // association ID -> association
	users         map[string]*domain.User         // user ID -> user
}

// NewStore 创建内存存储
func NewStore() *Store {
	return &Store{
		accounts:      make(map[string]*domain.EmailAccount),
		labels:        make(map[string]*domain.Label),
		messageLabels: make(map[string]*domain.MessageLabel),
		users:         make(map[string]*domain.User),
	}
}

// ========== AccountRepository ==========

// CreateAccount 创建邮箱账户
func (s *Store) CreateAccount(ctx context.Context, account *domain.EmailAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.GrantID == account.GrantID {
			return storage.ErrDuplicateKey
		}
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

// GetAccount 按 ID 获取邮箱账户
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

// GetAccountByGrantID 按授权 ID 获取邮箱账户
func (s *Store) GetAccountByGrantID(ctx context.Context, grantID string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.GrantID == grantID {
			cp := *account
			return &cp, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

// GetAccountByEmail 按邮箱地址获取邮箱账户
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

// ListAccountsByUser 列出用户的全部邮箱账户
func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EmailAccount
	for _, account := range s.accounts {
		if account.UserID == userID {
			cp := *account
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateAccount 更新邮箱账户
func (s *Store) UpdateAccount(ctx context.Context, account *domain.EmailAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return storage.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

// SetPrimaryAccount 将指定账户设为用户的主账户
func (s *Store) SetPrimaryAccount(ctx context.Context, userID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.accounts[accountID]
	if !ok || target.UserID != userID {
		return storage.ErrAccountNotFound
	}

	now := time.Now().UTC()
	for _, account := range s.accounts {
		if account.UserID != userID {
			continue
		}
		isPrimary := account.ID == accountID
		if account.IsPrimary != isPrimary {
			account.IsPrimary = isPrimary
			account.UpdatedAt = now
		}
	}
	return nil
}

// DeleteAccount 删除邮箱账户
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return storage.ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

// ========== LabelRepository ==========

// ListLabels 按排序序号列出全部标签
func (s *Store) ListLabels(ctx context.Context) ([]*domain.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Label, 0, len(s.labels))
	for _, label := range s.labels {
		cp := *label
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SortOrder < result[j].SortOrder
	})
	return result, nil
}

// GetLabelByName 按名称获取标签
func (s *Store) GetLabelByName(ctx context.Context, name string) (*domain.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, label := range s.labels {
		if label.Name == name {
			cp := *label
			return &cp, nil
		}
	}
	return nil, storage.ErrLabelNotFound
}

// SeedLabels 写入缺失的预置标签
func (s *Store) SeedLabels(ctx context.Context, labels []*domain.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, label := range labels {
		exists := false
		for _, existing := range s.labels {
			if existing.Name == label.Name {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		cp := *label
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now().UTC()
		}
		s.labels[cp.ID] = &cp
	}
	return nil
}

// ========== MessageLabelRepository ==========

// ApplyLabel 写入邮件标签关联
func (s *Store) ApplyLabel(ctx context.Context, ml *domain.MessageLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.messageLabels {
		if existing.MessageID == ml.MessageID && existing.LabelID == ml.LabelID {
			return storage.ErrDuplicateKey
		}
	}

	if ml.ID == "" {
		ml.ID = uuid.New().String()
	}
	if ml.CreatedAt.IsZero() {
		ml.CreatedAt = time.Now().UTC()
	}
	cp := *ml
	s.messageLabels[ml.ID] = &cp
	return nil
}

// ListMessageLabels 列出单封邮件的全部标签关联
func (s *Store) ListMessageLabels(ctx context.Context, messageID string) ([]*domain.MessageLabel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MessageLabel
	for _, ml := range s.messageLabels {
		if ml.MessageID == messageID {
			cp := *ml
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListLabeledMessages 按标签分页列出账户下的邮件关联
func (s *Store) ListLabeledMessages(ctx context.Context, accountID, labelID string, limit, offset int) ([]*domain.MessageLabel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*domain.MessageLabel
	for _, ml := range s.messageLabels {
		if ml.AccountID == accountID && ml.LabelID == labelID {
			cp := *ml
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// RemoveLabel 删除邮件标签关联
func (s *Store) RemoveLabel(ctx context.Context, messageID, labelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ml := range s.messageLabels {
		if ml.MessageID == messageID && ml.LabelID == labelID {
			delete(s.messageLabels, id)
			return nil
		}
	}
	return storage.ErrMessageLabelNotFound
}

// ========== UserRepository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return storage.ErrDuplicateKey
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// GetUser 按 ID 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// GetUserByEmail 按邮箱获取用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// TouchLastLogin 更新最近登录时间
func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.LastLoginAt = &at
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// Health 检查存储连接状态
func (s *Store) Health(ctx context.Context) error {
	return nil
}

// Close 关闭存储连接
func (s *Store) Close() error {
	return nil
}
