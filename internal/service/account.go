package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	"github.com/teamennovat/onebox-sub000/internal/storage"
	redisstore "github.com/teamennovat/onebox-sub000/internal/storage/redis"
	"github.com/teamennovat/onebox-sub000/internal/websocket"
)

// 账户业务错误
var (
	ErrAccountForbidden = errors.New("account does not belong to user")
)

// AccountService 邮箱账户管理服务
//
// 负责 OAuth 授权回调的账户落库、主账户切换与
// 授权 ID 到账户的归属校验。
type AccountService struct {
	store storage.Store
	nylas *nylas.Client
	cache *redisstore.Cache
	hub   *websocket.Hub
	log   *zap.Logger
}

// NewAccountService 创建账户服务
func NewAccountService(
	store storage.Store,
	nylasClient *nylas.Client,
	cache *redisstore.Cache,
	hub *websocket.Hub,
	log *zap.Logger,
) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		store: store,
		nylas: nylasClient,
		cache: cache,
		hub:   hub,
		log:   log,
	}
}

// AuthURL 构造 OAuth 授权跳转地址，state 携带用户 ID
func (s *AccountService) AuthURL(userID, loginHint string) string {
	return s.nylas.AuthURL(userID, loginHint)
}

// HandleCallback 处理 OAuth 回调：换取 grant 并落库
//
// 同一授权 ID 重复回调时更新既有账户而不是新建。
// 用户的第一个账户自动成为主账户。
func (s *AccountService) HandleCallback(ctx context.Context, userID, code string) (*domain.EmailAccount, error) {
	token, err := s.nylas.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetAccountByGrantID(ctx, token.GrantID)
	if err == nil {
		existing.Email = token.Email
		existing.Provider = token.Provider
		if err := s.store.UpdateAccount(ctx, existing); err != nil {
			return nil, err
		}
		s.invalidateGrant(ctx, token.GrantID)
		s.publishConnected(userID, existing)
		s.log.Info("email account reconnected",
			zap.String("user_id", userID),
			zap.String("grant_id", token.GrantID))
		return existing, nil
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		return nil, err
	}

	others, err := s.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	account := &domain.EmailAccount{
		UserID:    userID,
		GrantID:   token.GrantID,
		Email:     token.Email,
		Provider:  token.Provider,
		IsPrimary: len(others) == 0,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	s.publishConnected(userID, account)

	s.log.Info("email account connected",
		zap.String("user_id", userID),
		zap.String("grant_id", token.GrantID),
		zap.String("email", token.Email))
	return account, nil
}

// ListAccounts 列出用户的全部邮箱账户
func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]*domain.EmailAccount, error) {
	return s.store.ListAccountsByUser(ctx, userID)
}

// SetPrimary 切换用户的主账户
func (s *AccountService) SetPrimary(ctx context.Context, userID, accountID string) error {
	return s.store.SetPrimaryAccount(ctx, userID, accountID)
}

// Disconnect 断开邮箱账户
func (s *AccountService) Disconnect(ctx context.Context, userID, accountID string) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.UserID != userID {
		return ErrAccountForbidden
	}
	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	// 已删除账户的授权缓存必须立即失效，否则 Webhook
	// 在 TTL 内仍会按旧映射继续分类
	s.invalidateGrant(ctx, account.GrantID)
	s.log.Info("email account disconnected",
		zap.String("user_id", userID),
		zap.String("grant_id", account.GrantID))
	return nil
}

// invalidateGrant 清除授权到账户映射的缓存
func (s *AccountService) invalidateGrant(ctx context.Context, grantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, redisstore.GrantKey(grantID)); err != nil {
		s.log.Warn("failed to invalidate grant cache",
			zap.String("grant_id", grantID), zap.Error(err))
	}
}

// publishConnected 推送账户连接事件
func (s *AccountService) publishConnected(userID string, account *domain.EmailAccount) {
	if s.hub == nil {
		return
	}
	s.hub.PublishAccountConnected(userID, websocket.AccountConnectedData{
		AccountID: account.ID,
		Email:     account.Email,
		Provider:  account.Provider,
		IsPrimary: account.IsPrimary,
	})
}

// ResolveGrant 校验授权 ID 归属并返回对应账户
//
// 代理层在转发任何 grant 请求前调用，防止越权访问他人邮箱。
func (s *AccountService) ResolveGrant(ctx context.Context, userID, grantID string) (*domain.EmailAccount, error) {
	account, err := s.store.GetAccountByGrantID(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrAccountForbidden
	}
	return account, nil
}
