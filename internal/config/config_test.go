package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
	t.Setenv("CONFIG_FILE", "")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api-v2.pendle.finance/core", cfg.Pendle.APIBaseURL)
	assert.Equal(t, 1, cfg.Pendle.ChainID)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, "known_markets.json", cfg.Storage.StateFile)
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, "pendlewatch:known_markets:1", cfg.Storage.RedisKey)
	assert.False(t, cfg.NotifyEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("POLL_INTERVAL_SECONDS", "15")
	t.Setenv("PENDLE_CHAIN_ID", "42161")
	t.Setenv("STATE_FILE", "/tmp/arb.json")
	t.Setenv("STATE_BACKEND", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.PollInterval())
	assert.Equal(t, 42161, cfg.Pendle.ChainID)
	assert.Equal(t, "/tmp/arb.json", cfg.Storage.StateFile)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "pendlewatch:known_markets:42161", cfg.Storage.RedisKey)
	assert.True(t, cfg.NotifyEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadNonNumericOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL_SECONDS", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	content := `
pendle:
  chain_id: 56
  poll_interval_seconds: 120
storage:
  state_file: "./data/bsc.json"
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PENDLE_CHAIN_ID", "8453")

	cfg, err := Load()
	require.NoError(t, err)

	// Environment wins over the file
	assert.Equal(t, 8453, cfg.Pendle.ChainID)
	assert.Equal(t, 120, cfg.Pendle.PollIntervalSeconds)
	assert.Equal(t, "./data/bsc.json", cfg.Storage.StateFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSetChainID(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.SetChainID(42161)
	assert.Equal(t, 42161, cfg.Pendle.ChainID)
	assert.Equal(t, "pendlewatch:known_markets:42161", cfg.Storage.RedisKey)

	t.Setenv("REDIS_KEY", "custom:set")
	cfg, err = Load()
	require.NoError(t, err)
	cfg.SetChainID(42161)
	assert.Equal(t, "custom:set", cfg.Storage.RedisKey)
}

func TestValidateErrors(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Pendle: PendleConfig{
				APIBaseURL:          "https://example.com",
				ChainID:             1,
				PollIntervalSeconds: 60,
				TimeoutSeconds:      10,
			},
			Storage: StorageConfig{Backend: BackendJSON, StateFile: "known_markets.json"},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero poll interval", func(c *Config) { c.Pendle.PollIntervalSeconds = 0 }},
		{"negative timeout", func(c *Config) { c.Pendle.TimeoutSeconds = -1 }},
		{"missing base url", func(c *Config) { c.Pendle.APIBaseURL = "" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"missing state file", func(c *Config) { c.Storage.StateFile = "" }},
		{"missing redis url", func(c *Config) { c.Storage.Backend = BackendRedis }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
