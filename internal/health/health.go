package health

import (
	"context"
	"time"

	"github.com/heptiolabs/healthcheck"

	"github.com/teamennovat/onebox-sub000/internal/storage"
	redisstore "github.com/teamennovat/onebox-sub000/internal/storage/redis"
)

// NewHandler 创建健康检查处理器
//
// 存活探针检查协程数上限；就绪探针检查数据库和 Redis 连接。
func NewHandler(store storage.Store, redisClient *redisstore.Client) healthcheck.Handler {
	handler := healthcheck.NewHandler()

	handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))

	handler.AddReadinessCheck("database", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Health(ctx)
	})

	if redisClient != nil {
		handler.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	return handler
}
