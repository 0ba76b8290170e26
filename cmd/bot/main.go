package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"voxeval/internal/bot"
	"voxeval/internal/config"
	"voxeval/internal/llm"
	"voxeval/internal/queue"
	"voxeval/internal/storage"
	"voxeval/pkg/cache"
	"voxeval/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	resetDB := flag.Bool("reset-db", false, "Reset database by dropping all tables and re-running migrations")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitWithLevel(cfg.Log.Debug, cfg.Log.Level); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting voxeval bot service")

	if cfg.Postgres.DSN == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
		return
	}

	if *resetDB {
		logger.Info("Resetting database...")
		if err := storage.ResetMigrations(cfg.Postgres.DSN, cfg.Postgres.MigrationsDir); err != nil {
			logger.Fatal("Failed to reset database", zap.Error(err))
			return
		}
		logger.Info("Database reset completed successfully")
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

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.LastResultTTL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	defer redisCache.Close()

	logger.Info("Redis cache connection established")

	gen, err := llm.New(ctx, cfg.LLMOptions())
	if err != nil {
		logger.Fatal("Failed to create text generator", zap.Error(err))
		return
	}

	botInstance, err := bot.NewBot(cfg, db, rabbitMQ, redisCache, llm.NewFeedback(gen))
	if err != nil {
		logger.Fatal("Failed to initialize bot", zap.Error(err))
		return
	}

	go func() {
		logger.Info("Starting Telegram bot")
		botInstance.Start()
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	botInstance.Stop()

	logger.Info("Bot service shutdown complete")
}
