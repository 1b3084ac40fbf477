package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teamennovat/onebox-sub000/internal/ai"
	"github.com/teamennovat/onebox-sub000/internal/auth/jwt"
	"github.com/teamennovat/onebox-sub000/internal/cache"
	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/health"
	"github.com/teamennovat/onebox-sub000/internal/logger"
	"github.com/teamennovat/onebox-sub000/internal/monitoring"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	"github.com/teamennovat/onebox-sub000/internal/service"
	"github.com/teamennovat/onebox-sub000/internal/storage"
	"github.com/teamennovat/onebox-sub000/internal/storage/memory"
	redisstore "github.com/teamennovat/onebox-sub000/internal/storage/redis"
	sqlstore "github.com/teamennovat/onebox-sub000/internal/storage/sql"
	transport "github.com/teamennovat/onebox-sub000/internal/transport/http"
	"github.com/teamennovat/onebox-sub000/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 存储层：未配置数据库时退回内存存储（仅用于本地开发）
	var store storage.Store
	if cfg.Database.Type != "" {
		sqlStore, err := sqlstore.NewStore(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		store = sqlStore
	} else {
		log.Warn("no database configured, using in-memory store")
		store = memory.NewStore()
	}
	defer store.Close()

	seed := domain.ClassificationLabels()
	seedPtrs := make([]*domain.Label, len(seed))
	for i := range seed {
		seedPtrs[i] = &seed[i]
	}
	if err := store.SeedLabels(ctx, seedPtrs); err != nil {
		return fmt.Errorf("failed to seed labels: %w", err)
	}

	redisClient, err := redisstore.NewClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()
	redisCache := redisstore.NewCache(redisClient)

	localCache := cache.NewLocalCache(5 * time.Minute)
	defer localCache.Close()

	// 外部客户端
	nylasClient := nylas.NewClient(&cfg.Nylas, log)
	streamAI := ai.NewClient(&cfg.AI.Groq, cfg.AI.MaxTokens, cfg.AI.Timeout, log)
	syncAI := ai.NewClient(&cfg.AI.OpenRouter, cfg.AI.MaxTokens, cfg.AI.Timeout, log)

	// 公共组件
	metrics := monitoring.NewMetrics()
	jwtManager := jwt.NewManager(&cfg.JWT)
	hub := websocket.NewHub(log)

	// 业务服务
	authService := service.NewAuthService(store, jwtManager, log)
	accountService := service.NewAccountService(store, nylasClient, redisCache, hub, log)
	labelService := service.NewLabelService(store, localCache, log)
	mailboxService := service.NewMailboxService(nylasClient, redisCache, cfg.Pagination, metrics, log)
	assistService := service.NewAssistService(streamAI, syncAI, cfg.AI.RatePerMin, metrics, log)
	classifierService := service.NewClassifierService(store, redisCache, syncAI, labelService, hub, metrics, log)

	router := transport.NewRouter(transport.RouterDependencies{
		Config:     cfg,
		Auth:       authService,
		Accounts:   accountService,
		Mailbox:    mailboxService,
		Labels:     labelService,
		Assist:     assistService,
		Classifier: classifierService,
		Hub:        hub,
		JWTManager: jwtManager,
		Metrics:    metrics,
		Health:     health.NewHandler(store, redisClient),
		Logger:     log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info("http server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
