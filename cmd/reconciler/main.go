package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"vidtube-go/internal/config"
	"vidtube-go/internal/infra/database"
	infraKafka "vidtube-go/internal/infra/kafka"
	"vidtube-go/internal/model"
	"vidtube-go/internal/reconcile"
	"vidtube-go/internal/repository"
	"vidtube-go/internal/storage"
	"vidtube-go/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer database.Close()

	if err := database.AutoMigrate(&model.Video{}); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	store, err := storage.New(&cfg.MinIO)
	if err != nil {
		logger.Fatal("Failed to init object storage", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听系统信号，优雅退出
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	videoRepo := repository.NewVideoRepository(database.Get())
	reconciler := reconcile.New(videoRepo, store)

	groupID := cfg.Reconciler.GroupID
	if groupID == "" {
		groupID = "vidtube-reconciler"
	}

	logger.Info("Reconciler started",
		zap.String("topic", cfg.Kafka.EventTopic),
		zap.String("group", groupID),
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.Duration("sweep_interval", cfg.Reconciler.SweepDuration()),
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		infraKafka.StartEventConsumer(ctx, cfg.Kafka.Brokers, cfg.Kafka.EventTopic, groupID, reconciler.HandleEvent)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.RunSweeper(ctx, cfg.Reconciler.SweepDuration())
	}()

	wg.Wait()
	logger.Info("Reconciler stopped")
}
