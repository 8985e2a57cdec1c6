package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/jewelry-catalog-scraper/internal/config"
	"github.com/maltedev/jewelry-catalog-scraper/internal/stream"
	"github.com/maltedev/jewelry-catalog-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	consumer := stream.NewConsumer(rdb, stream.Config{
		Stream:   cfg.Outbox.Stream,
		Group:    cfg.Consumer.Group,
		Consumer: cfg.Consumer.Name,
		Block:    cfg.Consumer.Block,

		ReclaimInterval: cfg.Consumer.ReclaimInterval,
		ClaimMinIdle:    cfg.Consumer.ClaimMinIdle,
	}, stream.NewLogHandler(log), log)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}
}
