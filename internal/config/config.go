package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token string `yaml:"token"`
	// ReportChannelID is the optional chat that receives error reports.
	ReportChannelID int64 `yaml:"report_channel_id"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	WebhookPath string `yaml:"webhook_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProviderConfig struct {
	AccountBaseURL string        `yaml:"account_base_url"`
	SearchBaseURL  string        `yaml:"search_base_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

type TelemetryConfig struct {
	PingURL   string `yaml:"ping_url"`
	ProjectID string `yaml:"project_id"`
}

type LookupLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
}

type Config struct {
	Bot       BotConfig         `yaml:"bot"`
	Server    ServerConfig      `yaml:"server"`
	Log       LogConfig         `yaml:"log"`
	Redis     RedisConfig       `yaml:"redis"`
	Provider  ProviderConfig    `yaml:"provider"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Lookup    LookupLimitConfig `yaml:"lookup"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML config file and applies environment overrides for
// the secrets that are usually injected at deploy time. Only the bot token and
// the Redis URL are required; missing telemetry/report settings degrade to a
// logged warning at the call sites.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Env overrides
	if v := os.Getenv("TG_THIS_BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("TG_REPORT_CHANNEL_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TG_REPORT_CHANNEL_ID: %w", err)
		}
		cfg.Bot.ReportChannelID = id
	}
	if v := os.Getenv("EVENT_PING_URL"); v != "" {
		cfg.Telemetry.PingURL = v
	}
	if v := os.Getenv("EVENT_PING_PROJECT_ID"); v != "" {
		cfg.Telemetry.ProjectID = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = "/webhook"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Provider.AccountBaseURL == "" {
		cfg.Provider.AccountBaseURL = "https://account-asia-south1.truecaller.com/v1"
	}
	if cfg.Provider.SearchBaseURL == "" {
		cfg.Provider.SearchBaseURL = "https://search5-noneu.truecaller.com/v2"
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = 15 * time.Second
	}
	if cfg.Lookup.PerMinute <= 0 {
		cfg.Lookup.PerMinute = 20
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required (or TG_THIS_BOT_TOKEN)")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
