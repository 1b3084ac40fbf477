package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/logger"
	sqlstore "github.com/teamennovat/onebox-sub000/internal/storage/sql"
)

// 执行数据库结构迁移并播种九个预置分类标签。
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDevelopmentLogger()
	defer log.Sync()

	store, err := sqlstore.NewStore(&cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seed := domain.ClassificationLabels()
	labels := make([]*domain.Label, len(seed))
	for i := range seed {
		labels[i] = &seed[i]
	}
	if err := store.SeedLabels(ctx, labels); err != nil {
		log.Fatal("failed to seed labels", zap.Error(err))
	}

	log.Info("migration completed",
		zap.Int("seeded_labels", len(labels)),
		zap.String("database", cfg.Database.Type))
}
