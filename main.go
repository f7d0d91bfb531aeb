package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"guildwarden/bot"
	"guildwarden/config"
	"guildwarden/handlers"
	"guildwarden/model"
	"guildwarden/utils/database"
)

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}
	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rdb, err := bot.ConnectRedis(ctx, cfg.Redis, logger)
	cancel()
	if err != nil {
		logger.Warn("Continuing without redis, events stay in process", zap.Error(err))
	}

	b, err := bot.New(cfg, db, rdb, logger)
	if err != nil {
		logger.Fatal("Error creating bot", zap.Error(err))
	}
	defer b.Close()

	handlers.Register(b)

	if err := b.Run(); err != nil {
		logger.Error("Bot stopped", zap.Error(err))
	}
}
