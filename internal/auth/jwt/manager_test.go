package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/config"
)

func newTestManager(accessExpiry time.Duration) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:        "test-secret-key-at-least-32-characters!!",
		Issuer:        "onebox-test",
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 24 * time.Hour,
	})
}

func TestGenerateTokenPair(t *testing.T) {
	m := newTestManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)
}

func TestValidateToken(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	pair, err := m.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	t.Run("访问令牌校验成功", func(t *testing.T) {
		claims, err := m.ValidateToken(pair.AccessToken, PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.Equal(t, PurposeAccess, claims.Purpose)
	})

	t.Run("刷新令牌不能当访问令牌用", func(t *testing.T) {
		_, err := m.ValidateToken(pair.RefreshToken, PurposeAccess)
		assert.ErrorIs(t, err, ErrWrongPurpose)
	})

	t.Run("伪造令牌校验失败", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token", PurposeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("密钥不符校验失败", func(t *testing.T) {
		other := NewManager(&config.JWTConfig{
			Secret:        "another-secret-key-with-32-characters!!!",
			Issuer:        "onebox-test",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
		})
		_, err := other.ValidateToken(pair.AccessToken, PurposeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("过期令牌校验失败", func(t *testing.T) {
		expired := newTestManager(-1 * time.Minute)
		p, err := expired.GenerateTokenPair("user-1", "user@example.com")
		require.NoError(t, err)
		_, err = expired.ValidateToken(p.AccessToken, PurposeAccess)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	pair, err := m.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	t.Run("刷新令牌换取新令牌对", func(t *testing.T) {
		fresh, err := m.RefreshAccessToken(pair.RefreshToken)
		require.NoError(t, err)

		claims, err := m.ValidateToken(fresh.AccessToken, PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("访问令牌不能用于刷新", func(t *testing.T) {
		_, err := m.RefreshAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrWrongPurpose)
	})
}
