package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	redisstore "github.com/teamennovat/onebox-sub000/internal/storage/redis"
)

func bufferWith(ids ...string) *redisstore.PageBuffer {
	buf := &redisstore.PageBuffer{}
	for _, id := range ids {
		buf.Messages = append(buf.Messages, nylas.Message{ID: id})
	}
	return buf
}

func messageIDs(buf *redisstore.PageBuffer) []string {
	ids := make([]string, 0, len(buf.Messages))
	for _, m := range buf.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestMergeMessages(t *testing.T) {
	t.Run("新邮件追加到缓冲区末尾", func(t *testing.T) {
		buf := bufferWith("a", "b")
		mergeMessages(buf, []nylas.Message{{ID: "c"}, {ID: "d"}})
		assert.Equal(t, []string{"a", "b", "c", "d"}, messageIDs(buf))
	})

	t.Run("重复 ID 保留首次出现的那份", func(t *testing.T) {
		buf := bufferWith("a", "b")
		buf.Messages[0].Subject = "original"

		mergeMessages(buf, []nylas.Message{
			{ID: "a", Subject: "replacement"},
			{ID: "c"},
		})

		assert.Equal(t, []string{"a", "b", "c"}, messageIDs(buf))
		assert.Equal(t, "original", buf.Messages[0].Subject)
	})

	t.Run("批次内部的重复也被去除", func(t *testing.T) {
		buf := &redisstore.PageBuffer{}
		mergeMessages(buf, []nylas.Message{{ID: "x"}, {ID: "x"}, {ID: "y"}})
		assert.Equal(t, []string{"x", "y"}, messageIDs(buf))
	})

	t.Run("合并不打乱既有顺序", func(t *testing.T) {
		buf := &redisstore.PageBuffer{}
		for i := 0; i < 50; i++ {
			mergeMessages(buf, []nylas.Message{
				{ID: fmt.Sprintf("m-%d", i)},
				{ID: fmt.Sprintf("m-%d", i/2)}, // 与更早批次重叠
			})
		}

		seen := make(map[string]int)
		for _, id := range messageIDs(buf) {
			seen[id]++
		}
		for id, count := range seen {
			require.Equal(t, 1, count, "message %s appeared %d times", id, count)
		}
		assert.Equal(t, "m-0", buf.Messages[0].ID)
	})
}

// memBufferStore 内存版分页缓冲区，仅供测试
type memBufferStore struct {
	buffers map[string]*redisstore.PageBuffer
}

func newMemBufferStore() *memBufferStore {
	return &memBufferStore{buffers: make(map[string]*redisstore.PageBuffer)}
}

func (s *memBufferStore) GetPageBuffer(ctx context.Context, key string) (*redisstore.PageBuffer, error) {
	buf, ok := s.buffers[key]
	if !ok {
		return nil, redisstore.ErrCacheMiss
	}
	cp := *buf
	cp.Messages = append([]nylas.Message(nil), buf.Messages...)
	return &cp, nil
}

func (s *memBufferStore) SavePageBuffer(ctx context.Context, key string, buf *redisstore.PageBuffer, ttl time.Duration) error {
	cp := *buf
	cp.Messages = append([]nylas.Message(nil), buf.Messages...)
	s.buffers[key] = &cp
	return nil
}

func (s *memBufferStore) DeletePageBuffer(ctx context.Context, key string) error {
	delete(s.buffers, key)
	return nil
}

// newProviderServer 返回带游标分页的服务商假服务
//
// 共 total 封邮件，page_token 为下一封的序号，游标走到末尾
// 时不再返回 next_cursor。
func newProviderServer(t *testing.T, total int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		require.Equal(t, "/v3/grants/grant-1/messages", r.URL.Path)

		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		require.NoError(t, err)
		offset := 0
		if tok := r.URL.Query().Get("page_token"); tok != "" {
			offset, err = strconv.Atoi(tok)
			require.NoError(t, err)
		}

		end := offset + limit
		if end > total {
			end = total
		}
		msgs := make([]map[string]interface{}, 0, end-offset)
		for i := offset; i < end; i++ {
			msgs = append(msgs, map[string]interface{}{"id": fmt.Sprintf("m-%d", i+1)})
		}
		resp := map[string]interface{}{"request_id": "req-1", "data": msgs}
		if end < total {
			resp["next_cursor"] = strconv.Itoa(end)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestMailbox(providerURL string, store PageBufferStore) *MailboxService {
	client := nylas.NewClient(&config.NylasConfig{
		APIKey: "test-key",
		APIURI: providerURL,
	}, nil)
	return NewMailboxService(client, store, config.PaginationConfig{
		PageSize:     4,
		ProviderSize: 10,
		BufferTTL:    time.Minute,
	}, nil, nil)
}

func TestListMessages(t *testing.T) {
	t.Run("每页返回固定大小", func(t *testing.T) {
		var calls int32
		srv := newProviderServer(t, 25, &calls)
		defer srv.Close()
		svc := newTestMailbox(srv.URL, newMemBufferStore())

		list, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"m-1", "m-2", "m-3", "m-4"}, messageIDs(&redisstore.PageBuffer{Messages: list.Messages}))
		assert.Equal(t, 4, list.PageSize)
		assert.True(t, list.HasMore)
	})

	t.Run("缓冲区足够时不再请求服务商", func(t *testing.T) {
		var calls int32
		srv := newProviderServer(t, 25, &calls)
		defer srv.Close()
		svc := newTestMailbox(srv.URL, newMemBufferStore())

		// 首次拉取 ProviderSize=10 封，覆盖前两页
		_, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 1})
		require.NoError(t, err)
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))

		_, err = svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 1})
		require.NoError(t, err)
		list, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 2})
		require.NoError(t, err)

		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
		assert.Equal(t, "m-5", list.Messages[0].ID)
	})

	t.Run("缓冲区耗尽时恰好续拉一次", func(t *testing.T) {
		var calls int32
		srv := newProviderServer(t, 25, &calls)
		defer srv.Close()
		svc := newTestMailbox(srv.URL, newMemBufferStore())

		_, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 2})
		require.NoError(t, err)
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))

		// 第 3 页需要 12 封，超出已缓冲的 10 封
		list, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
		assert.Equal(t, "m-9", list.Messages[0].ID)
		assert.Equal(t, "m-12", list.Messages[3].ID)
	})

	t.Run("游标走到末尾后不再请求", func(t *testing.T) {
		var calls int32
		srv := newProviderServer(t, 25, &calls)
		defer srv.Close()
		svc := newTestMailbox(srv.URL, newMemBufferStore())

		// 超出全部 25 封的请求会连续拉到游标耗尽
		list, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 8})
		require.NoError(t, err)
		assert.Empty(t, list.Messages)
		assert.False(t, list.HasMore)
		fetchedAll := atomic.LoadInt32(&calls)

		_, err = svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 8})
		require.NoError(t, err)
		assert.Equal(t, fetchedAll, atomic.LoadInt32(&calls))

		// 末页不足固定页大小时只返回剩余部分
		last, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 7})
		require.NoError(t, err)
		assert.Len(t, last.Messages, 1)
		assert.Equal(t, "m-25", last.Messages[0].ID)
		assert.False(t, last.HasMore)
	})

	t.Run("refresh 丢弃缓冲区重新拉取", func(t *testing.T) {
		var calls int32
		srv := newProviderServer(t, 25, &calls)
		defer srv.Close()
		svc := newTestMailbox(srv.URL, newMemBufferStore())

		_, err := svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 1})
		require.NoError(t, err)
		_, err = svc.ListMessages(context.Background(), "grant-1", ListOptions{Page: 1, Refresh: true})
		require.NoError(t, err)

		assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	})
}

func TestPageBufferKey(t *testing.T) {
	t.Run("相同条件生成相同键", func(t *testing.T) {
		assert.Equal(t,
			redisstore.PageBufferKey("g1", "inbox", "foo"),
			redisstore.PageBufferKey("g1", "inbox", "foo"))
	})

	t.Run("不同条件生成不同键", func(t *testing.T) {
		base := redisstore.PageBufferKey("g1", "inbox", "foo")
		assert.NotEqual(t, base, redisstore.PageBufferKey("g2", "inbox", "foo"))
		assert.NotEqual(t, base, redisstore.PageBufferKey("g1", "sent", "foo"))
		assert.NotEqual(t, base, redisstore.PageBufferKey("g1", "inbox", "bar"))
	})
}
