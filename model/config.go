package model

import "time"

// ExperimentAssignment places a guild in one bucket of an experiment.
type ExperimentAssignment struct {
	GuildID string `mapstructure:"guild_id"`
	Bucket  int    `mapstructure:"bucket"`
}

// Experiment is a rollout flag scoped to guilds. An inactive experiment is on
// for every guild; an active one only for the assigned guild/bucket pairs.
type Experiment struct {
	ID      int64                  `mapstructure:"id"`
	Kind    string                 `mapstructure:"kind"`
	Active  bool                   `mapstructure:"active"`
	Buckets []int                  `mapstructure:"buckets"`
	Data    []ExperimentAssignment `mapstructure:"data"`
}

// Has reports whether the guild is in the given bucket.
func (e Experiment) Has(guildID string, bucket int) bool {
	if e.Kind != "guild" {
		return false
	}
	if !e.Active {
		return true
	}
	for _, a := range e.Data {
		if a.GuildID == guildID && a.Bucket == bucket {
			return true
		}
	}
	return false
}

// RedisConfig holds the optional pub/sub connection for lifecycle events.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Config 存储应用程序的配置
type Config struct {
	BotToken            string        `mapstructure:"bot_token"`
	AppID               string        `mapstructure:"app_id"`
	LogChannelID        string        `mapstructure:"log_channel_id"`
	DatabasePath        string        `mapstructure:"database_path"`
	LogLevel            string        `mapstructure:"log_level"`
	Debug               bool          `mapstructure:"debug"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
	StatsInterval       time.Duration `mapstructure:"stats_interval"`
	Redis               RedisConfig   `mapstructure:"redis"`
	TicketWords         []string      `mapstructure:"ticket_words"`
	Experiments         []Experiment  `mapstructure:"experiments"`
}
