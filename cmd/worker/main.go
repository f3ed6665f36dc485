package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/cache"
	"github.com/lingora/backend/internal/config"
	"github.com/lingora/backend/internal/queue"
	"github.com/lingora/backend/internal/queue/workers"
	"github.com/lingora/backend/internal/storage"
	"github.com/lingora/backend/internal/transcribe"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	registry := ai.NewRegistry(cfg.AI)
	store := storage.NewSupabaseStorage(cfg.Staging.SupabaseURL, cfg.Staging.ServiceKey, cfg.Staging.PublicBaseURL)
	transcriber := transcribe.NewService(registry, cfg.AI.STTDriver, store, cfg.Staging.Bucket)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	handlers := queue.NewHandlersRegistry()
	transcriptionWorker := workers.NewTranscriptionWorker(transcriber, cache.NewCache(rdb))
	handlers.Register(queue.TypeTranscriptionProcess, asynq.HandlerFunc(transcriptionWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(handlers.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
