// Package main runs the background content refinement worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/postmeeting/backend/config"
	"github.com/postmeeting/backend/internal/ai"
	"github.com/postmeeting/backend/internal/contents"
	"github.com/postmeeting/backend/internal/meetings"
	"github.com/postmeeting/backend/internal/worker"
	"github.com/postmeeting/backend/pkg/database"
	"github.com/postmeeting/backend/pkg/queue"
	"github.com/postmeeting/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	meetingRepo := meetings.NewRepository(pool)
	contentRepo := contents.NewRepository(pool)
	aiSvc := ai.NewService(ai.NewOpenAI(cfg.OpenAI), logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	processor := worker.NewContentProcessor(meetingRepo, contentRepo, aiSvc, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(ctx)
	go processor.Run(workerCtx)
	logger.Info("content worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
