package cache

import (
	"sync"
	"time"
)

// entry 缓存条目
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// LocalCache 进程内 TTL 缓存
//
// 用于标签目录、授权归属等读多写少的小数据，
// 减少对数据库和 Redis 的重复查询。
type LocalCache struct {
	entries sync.Map
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewLocalCache 创建本地缓存并启动过期清理协程
func NewLocalCache(ttl time.Duration) *LocalCache {
	c := &LocalCache{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get 读取缓存值，过期视为未命中
func (c *LocalCache) Get(key string) (interface{}, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if time.Now().After(e.expiresAt) {
		c.entries.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set 写入缓存值
func (c *LocalCache) Set(key string, value interface{}) {
	c.entries.Store(key, entry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.entries.Delete(key)
}

// Close 停止清理协程
func (c *LocalCache) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.entries.Range(func(key, v interface{}) bool {
				if now.After(v.(entry).expiresAt) {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}
