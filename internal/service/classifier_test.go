package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/ai"
	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	"github.com/teamennovat/onebox-sub000/internal/storage/memory"
)

// newClassifyServer 返回固定分类结果的 AI 假服务
func newClassifyServer(t *testing.T, label string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		content, _ := json.Marshal(map[string]string{"label": label})
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": string(content)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

// newTestClassifier 装配一个基于内存存储的分类服务
func newTestClassifier(t *testing.T, aiURL string) (*ClassifierService, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	seed := domain.ClassificationLabels()
	labels := make([]*domain.Label, len(seed))
	for i := range seed {
		labels[i] = &seed[i]
	}
	require.NoError(t, store.SeedLabels(context.Background(), labels))

	require.NoError(t, store.CreateUser(context.Background(), &domain.User{
		ID: "user-1", Email: "owner@example.com", Username: "owner", IsActive: true,
	}))
	require.NoError(t, store.CreateAccount(context.Background(), &domain.EmailAccount{
		ID: "acct-1", UserID: "user-1", GrantID: "grant-1", Email: "owner@example.com", Provider: "google",
	}))

	aiClient := ai.NewClient(&config.AIProviderConfig{
		APIKey:  "test-key",
		BaseURI: aiURL,
		Model:   "test-model",
	}, 256, 5*time.Second, nil)

	labelService := NewLabelService(store, nil, nil)
	classifier := NewClassifierService(store, nil, aiClient, labelService, nil, nil, nil)
	return classifier, store
}

func testMessage(id string) *nylas.Message {
	return &nylas.Message{
		ID:      id,
		GrantID: "grant-1",
		Subject: "Weekly status update",
		From:    []nylas.Participant{{Name: "Alice", Email: "alice@example.com"}},
		Snippet: "Here is this week's progress summary.",
		Date:    1735689600,
		Unread:  true,
	}
}

func TestProcessMessage(t *testing.T) {
	t.Run("新邮件被分类并落库", func(t *testing.T) {
		srv := newClassifyServer(t, domain.LabelFYI)
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		err := classifier.ProcessMessage(context.Background(), testMessage("msg-1"))
		require.NoError(t, err)

		mls, err := store.ListMessageLabels(context.Background(), "msg-1")
		require.NoError(t, err)
		require.Len(t, mls, 1)
		assert.Equal(t, "acct-1", mls[0].AccountID)
		assert.Equal(t, []string{"grant-1"}, mls[0].AppliedBy)
		assert.Equal(t, "Weekly status update", mls[0].MailDetails.Subject)
	})

	t.Run("收件人中的已连接账户加入可见授权", func(t *testing.T) {
		srv := newClassifyServer(t, domain.LabelFYI)
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		require.NoError(t, store.CreateUser(context.Background(), &domain.User{
			ID: "user-2", Email: "peer@example.com", Username: "peer", IsActive: true,
		}))
		require.NoError(t, store.CreateAccount(context.Background(), &domain.EmailAccount{
			ID: "acct-2", UserID: "user-2", GrantID: "grant-2", Email: "peer@example.com", Provider: "google",
		}))

		msg := testMessage("msg-fanout")
		msg.To = []nylas.Participant{
			{Email: "owner@example.com"},
			{Email: "peer@example.com"},
			{Email: "stranger@example.com"},
		}
		require.NoError(t, classifier.ProcessMessage(context.Background(), msg))

		mls, err := store.ListMessageLabels(context.Background(), "msg-fanout")
		require.NoError(t, err)
		require.Len(t, mls, 1)
		assert.ElementsMatch(t, []string{"grant-1", "grant-2"}, mls[0].AppliedBy)
	})

	t.Run("重复处理同一封邮件保持单条关联", func(t *testing.T) {
		srv := newClassifyServer(t, domain.LabelToRespond)
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		msg := testMessage("msg-dup")
		require.NoError(t, classifier.ProcessMessage(context.Background(), msg))
		require.NoError(t, classifier.ProcessMessage(context.Background(), msg))

		mls, err := store.ListMessageLabels(context.Background(), "msg-dup")
		require.NoError(t, err)
		assert.Len(t, mls, 1)
	})

	t.Run("未知授权的邮件被跳过", func(t *testing.T) {
		srv := newClassifyServer(t, domain.LabelFYI)
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		msg := testMessage("msg-foreign")
		msg.GrantID = "grant-unknown"
		require.NoError(t, classifier.ProcessMessage(context.Background(), msg))

		mls, err := store.ListMessageLabels(context.Background(), "msg-foreign")
		require.NoError(t, err)
		assert.Empty(t, mls)
	})

	t.Run("目录之外的分类结果被丢弃", func(t *testing.T) {
		srv := newClassifyServer(t, "Totally Made Up")
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		require.NoError(t, classifier.ProcessMessage(context.Background(), testMessage("msg-bad")))

		mls, err := store.ListMessageLabels(context.Background(), "msg-bad")
		require.NoError(t, err)
		assert.Empty(t, mls)
	})

	t.Run("AI 服务出错时返回错误且不落库", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		err := classifier.ProcessMessage(context.Background(), testMessage("msg-err"))
		require.Error(t, err)

		mls, err := store.ListMessageLabels(context.Background(), "msg-err")
		require.NoError(t, err)
		assert.Empty(t, mls)
	})
}

func TestProcessDelivery(t *testing.T) {
	t.Run("批量投递处理全部邮件", func(t *testing.T) {
		srv := newClassifyServer(t, domain.LabelNotification)
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		envelope := &nylas.WebhookEnvelope{
			Type: nylas.WebhookMessageCreated,
			Data: nylas.WebhookData{
				Objects: []nylas.Message{*testMessage("batch-1"), *testMessage("batch-2"), *testMessage("batch-3")},
			},
		}
		require.NoError(t, classifier.ProcessDelivery(context.Background(), envelope))

		for i := 1; i <= 3; i++ {
			mls, err := store.ListMessageLabels(context.Background(), fmt.Sprintf("batch-%d", i))
			require.NoError(t, err)
			assert.Len(t, mls, 1)
		}
	})

	t.Run("单封失败不影响同批其他邮件", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), "Poison subject") {
				http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
				return
			}
			content, _ := json.Marshal(map[string]string{"label": domain.LabelActioned})
			resp := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": string(content)}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer srv.Close()
		classifier, store := newTestClassifier(t, srv.URL)

		poisoned := testMessage("mixed-1")
		poisoned.Subject = "Poison subject"
		envelope := &nylas.WebhookEnvelope{
			Type: nylas.WebhookMessageCreated,
			Data: nylas.WebhookData{
				Objects: []nylas.Message{*poisoned, *testMessage("mixed-2")},
			},
		}
		require.NoError(t, classifier.ProcessDelivery(context.Background(), envelope))

		failed, err := store.ListMessageLabels(context.Background(), "mixed-1")
		require.NoError(t, err)
		assert.Empty(t, failed)

		ok, err := store.ListMessageLabels(context.Background(), "mixed-2")
		require.NoError(t, err)
		assert.Len(t, ok, 1)
	})
}
