package nylas

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.NylasConfig{
		APIKey:      "test-api-key",
		APIURI:      serverURL,
		ClientID:    "client-1",
		CallbackURI: "http://localhost/callback",
	}, nil)
}

func TestListMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/grants/grant-1/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "folder-1", r.URL.Query().Get("in"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "cursor-abc", r.URL.Query().Get("page_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"request_id": "req-1",
			"data": [
				{"id": "msg-1", "grant_id": "grant-1", "subject": "Hello", "date": 1735689600, "unread": true},
				{"id": "msg-2", "grant_id": "grant-1", "subject": "World", "date": 1735689700, "unread": false}
			],
			"next_cursor": "cursor-def"
		}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).ListMessages(context.Background(), "grant-1", ListMessagesInput{
		FolderID: "folder-1",
		Limit:    25,
		Cursor:   "cursor-abc",
	})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "msg-1", page.Messages[0].ID)
	assert.Equal(t, "Hello", page.Messages[0].Subject)
	assert.True(t, page.Messages[0].Unread)
	assert.Equal(t, "cursor-def", page.NextCursor)
}

func TestProviderErrorPassthrough(t *testing.T) {
	const errorBody = `{"request_id":"req-2","error":{"type":"not_found","message":"message not found"}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(errorBody))
	}))
	defer srv.Close()

	t.Run("非 2xx 响应转换为 APIError", func(t *testing.T) {
		_, err := newTestClient(srv.URL).GetMessage(context.Background(), "grant-1", "missing")
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, errorBody, apiErr.Body)
	})

	t.Run("删除操作同样透传错误", func(t *testing.T) {
		err := newTestClient(srv.URL).DeleteMessage(context.Background(), "grant-1", "missing")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/grants/grant-1/messages/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Write([]byte(`{"request_id":"req-3","data":{"id":"sent-1","grant_id":"grant-1","subject":"Hi"}}`))
	}))
	defer srv.Close()

	msg, err := newTestClient(srv.URL).Send(context.Background(), "grant-1", SendRequest{
		Subject: "Hi",
		To:      []Participant{{Email: "to@example.com"}},
		Body:    "Hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", msg.ID)
}

func TestAuthURL(t *testing.T) {
	client := newTestClient("https://api.test.example")
	url := client.AuthURL("state-1", "hint@example.com")

	assert.Contains(t, url, "https://api.test.example/v3/connect/auth?")
	assert.Contains(t, url, "client_id=client-1")
	assert.Contains(t, url, "state=state-1")
	assert.Contains(t, url, "login_hint=hint%40example.com")
}

func TestWebhookEnvelopeMessages(t *testing.T) {
	t.Run("单条通知", func(t *testing.T) {
		env := &WebhookEnvelope{
			Type: WebhookMessageCreated,
			Data: WebhookData{Object: Message{ID: "single-1"}},
		}
		msgs := env.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "single-1", msgs[0].ID)
	})

	t.Run("批量通知优先", func(t *testing.T) {
		env := &WebhookEnvelope{
			Type: WebhookMessageCreated,
			Data: WebhookData{
				Object:  Message{ID: "ignored"},
				Objects: []Message{{ID: "batch-1"}, {ID: "batch-2"}},
			},
		}
		msgs := env.Messages()
		require.Len(t, msgs, 2)
	})

	t.Run("空投递返回空切片", func(t *testing.T) {
		env := &WebhookEnvelope{Type: WebhookMessageCreated}
		assert.Empty(t, env.Messages())
	})
}
