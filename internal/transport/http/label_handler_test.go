package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/auth/jwt"
	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/service"
	"github.com/teamennovat/onebox-sub000/internal/storage/memory"
)

// newLabelRouter 装配标签路由与已登录用户的访问令牌
func newLabelRouter(t *testing.T) (*gin.Engine, *memory.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	seed := domain.ClassificationLabels()
	labels := make([]*domain.Label, len(seed))
	for i := range seed {
		labels[i] = &seed[i]
	}
	require.NoError(t, store.SeedLabels(context.Background(), labels))
	require.NoError(t, store.CreateAccount(context.Background(), &domain.EmailAccount{
		ID: "acct-1", UserID: "user-1", GrantID: "grant-1", Email: "o@example.com", Provider: "google",
	}))

	jwtManager := jwt.NewManager(&config.JWTConfig{
		Secret:        "router-test-secret-with-32-chars!!!!",
		Issuer:        "test",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	pair, err := jwtManager.GenerateTokenPair("user-1", "o@example.com")
	require.NoError(t, err)

	router := NewRouter(RouterDependencies{
		Config: &config.Config{
			Nylas: config.NylasConfig{WebhookSecret: "s"},
			CORS:  config.CORSConfig{AllowedOrigins: []string{"*"}},
		},
		Accounts:   service.NewAccountService(store, nil, nil, nil, nil),
		Labels:     service.NewLabelService(store, nil, nil),
		JWTManager: jwtManager,
	})
	return router, store, pair.AccessToken
}

func TestApplyLabelHandler(t *testing.T) {
	t.Run("手动打标记录归属授权", func(t *testing.T) {
		router, store, token := newLabelRouter(t)
		body, _ := json.Marshal(map[string]interface{}{
			"message_id": "msg-1",
			"label":      domain.LabelFYI,
			"account_id": "acct-1",
			"details":    map[string]interface{}{"subject": "Team offsite"},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/labels/apply", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		mls, err := store.ListMessageLabels(context.Background(), "msg-1")
		require.NoError(t, err)
		require.Len(t, mls, 1)
		assert.Equal(t, []string{"grant-1"}, mls[0].AppliedBy)
		assert.Equal(t, "Team offsite", mls[0].MailDetails.Subject)
	})

	t.Run("他人账户打标被拒绝", func(t *testing.T) {
		router, store, token := newLabelRouter(t)
		require.NoError(t, store.CreateAccount(context.Background(), &domain.EmailAccount{
			ID: "acct-2", UserID: "user-2", GrantID: "grant-2", Email: "x@example.com", Provider: "google",
		}))
		body, _ := json.Marshal(map[string]interface{}{
			"message_id": "msg-2",
			"label":      domain.LabelFYI,
			"account_id": "acct-2",
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/labels/apply", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
