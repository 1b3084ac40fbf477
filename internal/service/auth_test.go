package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/auth/jwt"
	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/storage/memory"
)

func newTestAuthService() *AuthService {
	manager := jwt.NewManager(&config.JWTConfig{
		Secret:        "auth-test-secret-with-32-characters!",
		Issuer:        "onebox-test",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
	return NewAuthService(memory.NewStore(), manager, nil)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("注册成功返回用户与令牌", func(t *testing.T) {
		svc := newTestAuthService()
		user, pair, err := svc.Register(ctx, "New@Example.com", "newbie", "password123")
		require.NoError(t, err)

		assert.Equal(t, "new@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("重复邮箱被拒绝", func(t *testing.T) {
		svc := newTestAuthService()
		_, _, err := svc.Register(ctx, "dup@example.com", "one", "password123")
		require.NoError(t, err)

		_, _, err = svc.Register(ctx, "dup@example.com", "two", "password123")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("过短密码被拒绝", func(t *testing.T) {
		svc := newTestAuthService()
		_, _, err := svc.Register(ctx, "weak@example.com", "weak", "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("正确密码登录成功", func(t *testing.T) {
		svc := newTestAuthService()
		_, _, err := svc.Register(ctx, "login@example.com", "user", "password123")
		require.NoError(t, err)

		user, pair, err := svc.Login(ctx, "login@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", user.Email)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("错误密码返回统一错误", func(t *testing.T) {
		svc := newTestAuthService()
		_, _, err := svc.Register(ctx, "login2@example.com", "user", "password123")
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "login2@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("不存在的用户返回统一错误", func(t *testing.T) {
		svc := newTestAuthService()
		_, _, err := svc.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
