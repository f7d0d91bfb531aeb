package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"guildwarden/model"
)

// Load reads .env, then config.yaml from the search paths, then the
// environment. Environment variables win; nested keys use "_" (REDIS_ADDR).
func Load(searchPaths ...string) (*model.Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./data"}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	if cfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, logging will be disabled")
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot_token", "")
	v.SetDefault("app_id", "")
	v.SetDefault("log_channel_id", "")
	v.SetDefault("database_path", "data/guildwarden.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("maintenance_interval", 30*time.Minute)
	v.SetDefault("stats_interval", time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ticket_words", []string{})
}
