package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/ai"
	"github.com/teamennovat/onebox-sub000/internal/config"
)

// newStreamServer 以 SSE 协议分片返回指定片段
func newStreamServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range deltas {
			chunk := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"delta": map[string]string{"content": delta}},
				},
			}
			payload, _ := json.Marshal(chunk)
			w.Write([]byte("data: " + string(payload) + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
}

func newAIClient(url string) *ai.Client {
	return ai.NewClient(&config.AIProviderConfig{
		APIKey: "k", BaseURI: url, Model: "m",
	}, 256, 5*time.Second, nil)
}

func TestCompose(t *testing.T) {
	t.Run("流式片段按序转发", func(t *testing.T) {
		srv := newStreamServer(t, []string{"Dear ", "team,", " hello."})
		defer srv.Close()

		svc := NewAssistService(newAIClient(srv.URL), nil, 100, nil, nil)

		var got strings.Builder
		err := svc.Compose(context.Background(), "user-1", "write a greeting", "Alice", func(delta string) error {
			got.WriteString(delta)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Dear team, hello.", got.String())
	})

	t.Run("空指令被拒绝", func(t *testing.T) {
		svc := NewAssistService(nil, nil, 100, nil, nil)
		err := svc.Compose(context.Background(), "user-1", "   ", "", func(string) error { return nil })
		assert.ErrorIs(t, err, ErrEmptyInstruction)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("解析摘要结果", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			content, _ := json.Marshal(map[string]interface{}{
				"summary":     "A short recap.",
				"actionItems": []string{"Reply before Friday"},
			})
			resp := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": string(content)}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer srv.Close()

		svc := NewAssistService(nil, newAIClient(srv.URL), 100, nil, nil)
		summary, err := svc.Summarize(context.Background(), "user-1", "Subject", "a@example.com", "body text")
		require.NoError(t, err)
		assert.Equal(t, "A short recap.", summary.Summary)
		assert.Equal(t, []string{"Reply before Friday"}, summary.ActionItems)
	})

	t.Run("上游错误向上传递", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		svc := NewAssistService(nil, newAIClient(srv.URL), 100, nil, nil)
		_, err := svc.Summarize(context.Background(), "user-1", "S", "f", "b")
		require.Error(t, err)

		var apiErr *ai.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, _ := json.Marshal(map[string]string{"summary": "ok"})
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": string(content)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	// 每分钟 2 次：突发额度耗尽后立即限流
	svc := NewAssistService(nil, newAIClient(srv.URL), 2, nil, nil)

	_, err := svc.Summarize(context.Background(), "user-1", "S", "f", "b")
	require.NoError(t, err)
	_, err = svc.Summarize(context.Background(), "user-1", "S", "f", "b")
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), "user-1", "S", "f", "b")
	assert.ErrorIs(t, err, ErrRateLimited)

	// 其他用户不受影响
	_, err = svc.Summarize(context.Background(), "user-2", "S", "f", "b")
	assert.NoError(t, err)
}
