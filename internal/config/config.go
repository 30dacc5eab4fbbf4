package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Pendle   PendleConfig   `mapstructure:"pendle"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PendleConfig holds Pendle API and polling configuration
type PendleConfig struct {
	APIBaseURL          string `mapstructure:"api_base_url"`
	ChainID             int    `mapstructure:"chain_id"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	ChatID      string `mapstructure:"chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// StorageConfig holds known-market persistence configuration
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // json, sqlite or redis
	StateFile string `mapstructure:"state_file"`
	RedisURL  string `mapstructure:"redis_url"`
	RedisKey  string `mapstructure:"redis_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"pendle.api_base_url":          "PENDLE_API_BASE",
	"pendle.chain_id":              "PENDLE_CHAIN_ID",
	"pendle.poll_interval_seconds": "POLL_INTERVAL_SECONDS",
	"pendle.timeout_seconds":       "HTTP_TIMEOUT_SECONDS",
	"telegram.bot_token":           "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":             "TELEGRAM_CHAT_ID",
	"telegram.api_endpoint":        "TELEGRAM_API_ENDPOINT",
	"storage.backend":              "STATE_BACKEND",
	"storage.state_file":           "STATE_FILE",
	"storage.redis_url":            "REDIS_URL",
	"storage.redis_key":            "REDIS_KEY",
	"logging.level":                "LOG_LEVEL",
	"logging.format":               "LOG_FORMAT",
}

// Load reads configuration from the environment, a .env file in the working
// directory, and the optional YAML file named by CONFIG_FILE, in that order
// of precedence.
func Load() (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Storage.RedisKey == "" {
		cfg.Storage.RedisKey = DefaultRedisKey(cfg.Pendle.ChainID)
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)

	return &cfg, nil
}

// DefaultRedisKey is the Redis set used for a chain when REDIS_KEY is unset.
func DefaultRedisKey(chainID int) string {
	return fmt.Sprintf("pendlewatch:known_markets:%d", chainID)
}

// SetChainID switches the watched chain. A Redis key that was derived from the
// previous chain follows the switch; an explicitly configured key is kept.
func (c *Config) SetChainID(chainID int) {
	if c.Storage.RedisKey == DefaultRedisKey(c.Pendle.ChainID) {
		c.Storage.RedisKey = DefaultRedisKey(chainID)
	}
	c.Pendle.ChainID = chainID
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("pendle.api_base_url", "https://api-v2.pendle.finance/core")
	v.SetDefault("pendle.chain_id", 1)
	v.SetDefault("pendle.poll_interval_seconds", 60)
	v.SetDefault("pendle.timeout_seconds", 10)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_endpoint", tgbotapi.APIEndpoint)

	v.SetDefault("storage.backend", BackendJSON)
	v.SetDefault("storage.state_file", "known_markets.json")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.Pendle.APIBaseURL == "" {
		return fmt.Errorf("pendle api base url is required")
	}
	if c.Pendle.PollIntervalSeconds < 1 {
		return fmt.Errorf("poll interval must be at least 1 second")
	}
	if c.Pendle.TimeoutSeconds < 1 {
		return fmt.Errorf("http timeout must be at least 1 second")
	}

	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
		if c.Storage.StateFile == "" {
			return fmt.Errorf("state file is required for the %s backend", c.Storage.Backend)
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis backend")
		}
	default:
		return fmt.Errorf("state backend must be one of: json, sqlite, redis")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("log level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("log format must be one of: json, text")
	}

	return nil
}

// PollInterval returns the poll interval as a time.Duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Pendle.PollIntervalSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout for outbound HTTP calls
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Pendle.TimeoutSeconds) * time.Second
}

// NotifyEnabled reports whether both Telegram credentials are present
func (c *Config) NotifyEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
