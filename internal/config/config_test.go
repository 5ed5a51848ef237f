package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"empty", "", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsDevelopment())
		})
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "http://localhost:8081", cfg.GatewayURL)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 10*time.Minute, cfg.ChatCacheTTL)
	assert.Equal(t, 1000, cfg.DefaultMessagesLimit)
	assert.Equal(t, 7, cfg.DefaultLookbackDays)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 194560, cfg.MaxBatchBytes)
	assert.Equal(t, 3*time.Hour, cfg.DisplayOffset)
	assert.Equal(t, 30*time.Second, cfg.RemoteCallTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CollectTimeout)
	assert.Equal(t, "artifacts/openapi.yaml", cfg.OpenAPISpecPath)
	assert.Nil(t, cfg.SyncChatIDs)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PAGE_SIZE", "50")
	t.Setenv("DISPLAY_OFFSET", "-5h30m")
	t.Setenv("DEFAULT_MESSAGES_LIMIT", "250")
	t.Setenv("SYNC_CHAT_IDS", "-1001, 42,,7")
	t.Setenv("SYNC_SCHEDULE", "*/15 * * * *")
	t.Setenv("DATABASE_URL", "postgres://localhost/collector")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, -(5*time.Hour + 30*time.Minute), cfg.DisplayOffset)
	assert.Equal(t, []int64{-1001, 42, 7}, cfg.SyncChatIDs)

	core := cfg.Collector()
	assert.Equal(t, int32(50), core.PageSize)
	assert.Equal(t, 250, core.DefaultLimit)
	assert.Equal(t, cfg.DisplayOffset, core.DisplayOffset)
}

func TestFromEnv_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("PAGE_SIZE", "lots")
	t.Setenv("REMOTE_CALL_TIMEOUT", "soon")
	t.Setenv("SYNC_CHAT_IDS", "1,abc")

	_, err := FromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAGE_SIZE")
	assert.Contains(t, err.Error(), "REMOTE_CALL_TIMEOUT")
	assert.Contains(t, err.Error(), `invalid chat id "abc"`)
}

func validConfig() *Config {
	return &Config{
		Environment:          "development",
		GatewayURL:           "http://localhost:8081",
		ChatCacheTTL:         time.Minute,
		DefaultMessagesLimit: 1000,
		DefaultLookbackDays:  7,
		PageSize:             100,
		MaxBatchBytes:        194560,
		RemoteCallTimeout:    time.Second,
		CollectTimeout:       time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorContains string
	}{
		{"valid_development", func(c *Config) {}, ""},
		{"production_requires_api_key", func(c *Config) { c.Environment = "production" }, "API_KEY_HASH must be set"},
		{"production_with_hash", func(c *Config) {
			c.Environment = "production"
			c.APIKeyHash = string(hash)
		}, ""},
		{"hash_must_be_bcrypt", func(c *Config) { c.APIKeyHash = "plain-text" }, "not a bcrypt hash"},
		{"gateway_required", func(c *Config) { c.GatewayURL = "" }, "TG_GATEWAY_URL"},
		{"limit_positive", func(c *Config) { c.DefaultMessagesLimit = 0 }, "DEFAULT_MESSAGES_LIMIT"},
		{"page_size_upper_bound", func(c *Config) { c.PageSize = 101 }, "PAGE_SIZE"},
		{"page_size_lower_bound", func(c *Config) { c.PageSize = 0 }, "PAGE_SIZE"},
		{"batch_bytes_positive", func(c *Config) { c.MaxBatchBytes = -1 }, "MAX_BATCH_BYTES"},
		{"remote_timeout_positive", func(c *Config) { c.RemoteCallTimeout = 0 }, "REMOTE_CALL_TIMEOUT"},
		{"collect_timeout_positive", func(c *Config) { c.CollectTimeout = 0 }, "COLLECT_TIMEOUT"},
		{"bad_cron", func(c *Config) {
			c.SyncSchedule = "every day"
			c.DatabaseURL = "postgres://x"
		}, "SYNC_SCHEDULE is not a valid cron spec"},
		{"sync_needs_database", func(c *Config) { c.SyncSchedule = "@hourly" }, "requires DATABASE_URL"},
		{"zero_display_offset_is_valid", func(c *Config) { c.DisplayOffset = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_KEY", "custom")

	assert.Equal(t, "custom", getEnv("TEST_KEY", "default"))
	assert.Equal(t, "default", getEnv("TEST_KEY_NOT_SET", "default"))
	assert.Equal(t, "", getEnv("TEST_KEY_EMPTY", ""))
}

func TestConfig_Lookback(t *testing.T) {
	cfg := &Config{DefaultLookbackDays: 2}
	assert.Equal(t, 48*time.Hour, cfg.Lookback())
}
