package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"voxeval/internal/audio"
	"voxeval/internal/config"
	"voxeval/internal/pipeline"
	"voxeval/internal/queue"
	"voxeval/internal/speechkit"
	"voxeval/internal/storage"
	"voxeval/internal/worker"
	"voxeval/pkg/cache"
	"voxeval/pkg/logger"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitWithLevel(cfg.Log.Debug, cfg.Log.Level); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting voxeval worker service")

	if cfg.Postgres.DSN == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewPostgresStorage(ctx, cfg.Postgres.DSN, cfg.Postgres.MigrationsDir)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
		return
	}
	defer db.Close()

	logger.Info("Database connection established")

	s3Storage, err := storage.NewS3Storage(ctx,
		cfg.S3.Endpoint,
		cfg.S3.Region,
		cfg.S3.AccessKey,
		cfg.S3.SecretKey,
		cfg.S3.Bucket,
	)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		return
	}

	logger.Info("S3 storage initialized")

	speechkitClient := speechkit.NewClient(cfg.SpeechKit.APIKey, cfg.SpeechKit.FolderID, cfg.SpeechKit.Locale)

	logger.Info("SpeechKit client initialized", zap.String("locale", speechkitClient.Locale()))

	// The worker only sends messages; polling belongs to the bot service.
	tb, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Offline: true,
	})
	if err != nil {
		logger.Fatal("Failed to create Telegram bot", zap.Error(err))
		return
	}

	logger.Info("Telegram bot initialized")

	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.LastResultTTL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	defer redisCache.Close()

	logger.Info("Redis cache connection established")

	evaluator, _, err := pipeline.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to build evaluation pipeline", zap.Error(err))
		return
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	deps := worker.Deps{
		Tasks:       db,
		Objects:     s3Storage,
		Recognizer:  speechkitClient,
		Evaluator:   evaluator,
		Messenger:   worker.NewTelegram(tb),
		Cache:       redisCache,
		Locale:      cfg.SpeechKit.Locale,
		TempDir:     cfg.Worker.TempDir,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}
	if audio.FFmpegAvailable() {
		deps.Transcoder = audio.NewTranscoder()
	} else {
		logger.Warn("ffmpeg not found, pronunciation and pause energy will not be scored")
	}

	processor := worker.NewProcessor(deps)

	logger.Info("Starting to consume messages from queue",
		zap.String("queue", queue.QueueNameEvaluation),
		zap.Int("concurrency", cfg.Worker.Concurrency))

	if err := rabbitMQ.Consume(ctx, queue.QueueNameEvaluation, cfg.Worker.Concurrency, processor.ProcessTask); err != nil && ctx.Err() == nil {
		logger.Error("Failed to consume messages", zap.Error(err))
	}

	logger.Info("Worker service shutdown complete")
}
