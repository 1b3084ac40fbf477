package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/teamennovat/onebox-sub000/internal/nylas"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// PageBuffer 邮件列表的累积缓冲区
//
// 服务端按固定页大小向前端切片返回，缓冲区记录已从服务商
// 拉取的全部邮件与下一次续拉所需的游标。
type PageBuffer struct {
	Messages   []nylas.Message `json:"messages"`
	NextCursor string          `json:"next_cursor"`
	Exhausted  bool            `json:"exhausted"`
}

// Cache 基于 Redis 的应用缓存
type Cache struct {
	client *Client
}

// NewCache 创建应用缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// PageBufferKey 构造分页缓冲区的缓存键
//
// 同一账户、同一文件夹、同一搜索条件共享一个缓冲区。
func PageBufferKey(grantID, folderID, search string) string {
	h := sha1.Sum([]byte(folderID + "|" + search))
	return fmt.Sprintf("onebox:pagebuf:%s:%s", grantID, hex.EncodeToString(h[:8]))
}

// GrantKey 构造授权到账户映射的缓存键
func GrantKey(grantID string) string {
	return "onebox:grant:" + grantID
}

// GetPageBuffer 读取分页缓冲区
func (c *Cache) GetPageBuffer(ctx context.Context, key string) (*PageBuffer, error) {
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get page buffer: %w", err)
	}

	var buf PageBuffer
	if err := json.Unmarshal(raw, &buf); err != nil {
		return nil, fmt.Errorf("failed to decode page buffer: %w", err)
	}
	return &buf, nil
}

// SavePageBuffer 写入分页缓冲区并刷新 TTL
func (c *Cache) SavePageBuffer(ctx context.Context, key string, buf *PageBuffer, ttl time.Duration) error {
	raw, err := json.Marshal(buf)
	if err != nil {
		return fmt.Errorf("failed to encode page buffer: %w", err)
	}
	if err := c.client.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save page buffer: %w", err)
	}
	return nil
}

// DeletePageBuffer 删除分页缓冲区，列表刷新时调用
func (c *Cache) DeletePageBuffer(ctx context.Context, key string) error {
	return c.Delete(ctx, key)
}

// SetJSON 以 JSON 形式写入任意对象
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return c.client.rdb.Set(ctx, key, raw, ttl).Err()
}

// GetJSON 读取 JSON 对象到 out
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) error {
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache value: %w", err)
	}
	return json.Unmarshal(raw, out)
}

// Delete 删除缓存键
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.rdb.Del(ctx, keys...).Err()
}
