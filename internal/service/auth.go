package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamennovat/onebox-sub000/internal/auth/jwt"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/storage"
)

// 认证业务错误
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrWeakPassword       = errors.New("password too short")
)

// AuthService 应用用户注册登录服务
type AuthService struct {
	store      storage.Store
	jwtManager *jwt.Manager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(store storage.Store, jwtManager *jwt.Manager, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:      store,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Register 注册新用户
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*domain.User, *jwt.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < 8 {
		return nil, nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	pair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("email", email))
	return user, pair, nil
}

// Login 校验密码并签发令牌对
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *jwt.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, pair, nil
}

// Refresh 用刷新令牌换取新令牌对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	pair, err := s.jwtManager.RefreshAccessToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// GetUser 获取当前用户信息
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}
