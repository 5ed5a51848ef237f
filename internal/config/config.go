package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"tg-chats-collector/internal/collector"
	"tg-chats-collector/internal/scheduler"
)

// maxPageSize is the largest page TDLib returns from a history call.
const maxPageSize = 100

// Config holds application configuration
type Config struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string
	LogFormat   string

	GatewayURL   string
	GatewayToken string

	// Optional collaborators. An empty URL disables the component.
	DatabaseURL  string
	RabbitMQURL  string
	RedisURL     string
	ChatCacheTTL time.Duration

	APIKeyHash     string
	AllowedOrigins string

	DefaultMessagesLimit int
	DefaultLookbackDays  int
	PageSize             int
	MaxBatchBytes        int
	DisplayOffset        time.Duration
	RemoteCallTimeout    time.Duration
	CollectTimeout       time.Duration

	SyncSchedule string
	SyncChatIDs  []int64

	OpenAPISpecPath string
}

// Load loads configuration from environment variables and validates it.
// It exits the process when the configuration is unusable.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	return cfg
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (*Config, error) {
	p := &envParser{}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		GatewayURL:   getEnv("TG_GATEWAY_URL", "http://localhost:8081"),
		GatewayToken: getEnv("TG_GATEWAY_TOKEN", ""),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		ChatCacheTTL: p.duration("CHAT_CACHE_TTL", 10*time.Minute),

		APIKeyHash:     getEnv("API_KEY_HASH", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DefaultMessagesLimit: p.int("DEFAULT_MESSAGES_LIMIT", collector.DefaultMessagesLimit),
		DefaultLookbackDays:  p.int("DEFAULT_LOOKBACK_DAYS", 7),
		PageSize:             p.int("PAGE_SIZE", collector.DefaultPageSize),
		MaxBatchBytes:        p.int("MAX_BATCH_BYTES", collector.DefaultMaxBatchBytes),
		DisplayOffset:        p.duration("DISPLAY_OFFSET", collector.DefaultDisplayOffset),
		RemoteCallTimeout:    p.duration("REMOTE_CALL_TIMEOUT", collector.DefaultRemoteCallTimeout),
		CollectTimeout:       p.duration("COLLECT_TIMEOUT", 10*time.Minute),

		SyncSchedule: getEnv("SYNC_SCHEDULE", ""),
		SyncChatIDs:  p.int64List("SYNC_CHAT_IDS"),

		OpenAPISpecPath: getEnv("OPENAPI_SPEC_PATH", "artifacts/openapi.yaml"),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.APIKeyHash == "" {
			return fmt.Errorf("API_KEY_HASH must be set in production")
		}
		if c.AllowedOrigins != "" {
			log.Println("WARNING: Ensure ALLOWED_ORIGINS uses HTTPS in production")
		}
	} else if c.APIKeyHash == "" {
		log.Println("API_KEY_HASH not set, API key authentication is disabled")
	}

	if c.APIKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(c.APIKeyHash)); err != nil {
			return fmt.Errorf("API_KEY_HASH is not a bcrypt hash: %w", err)
		}
	}

	if c.GatewayURL == "" {
		return fmt.Errorf("TG_GATEWAY_URL must be set")
	}
	if c.DefaultMessagesLimit <= 0 {
		return fmt.Errorf("DEFAULT_MESSAGES_LIMIT must be positive (got %d)", c.DefaultMessagesLimit)
	}
	if c.DefaultLookbackDays <= 0 {
		return fmt.Errorf("DEFAULT_LOOKBACK_DAYS must be positive (got %d)", c.DefaultLookbackDays)
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		return fmt.Errorf("PAGE_SIZE must be between 1 and %d (got %d)", maxPageSize, c.PageSize)
	}
	if c.MaxBatchBytes <= 0 {
		return fmt.Errorf("MAX_BATCH_BYTES must be positive (got %d)", c.MaxBatchBytes)
	}
	if c.RemoteCallTimeout <= 0 {
		return fmt.Errorf("REMOTE_CALL_TIMEOUT must be positive (got %s)", c.RemoteCallTimeout)
	}
	if c.CollectTimeout <= 0 {
		return fmt.Errorf("COLLECT_TIMEOUT must be positive (got %s)", c.CollectTimeout)
	}
	if c.ChatCacheTTL <= 0 {
		return fmt.Errorf("CHAT_CACHE_TTL must be positive (got %s)", c.ChatCacheTTL)
	}

	if c.SyncSchedule != "" {
		if _, err := scheduler.ParseSpec(c.SyncSchedule); err != nil {
			return fmt.Errorf("SYNC_SCHEDULE is not a valid cron spec: %w", err)
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("SYNC_SCHEDULE requires DATABASE_URL")
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

// Collector returns the settings of the collection core.
func (c *Config) Collector() collector.Config {
	return collector.Config{
		DefaultLimit:      c.DefaultMessagesLimit,
		PageSize:          int32(c.PageSize),
		MaxBatchBytes:     c.MaxBatchBytes,
		DisplayOffset:     c.DisplayOffset,
		RemoteCallTimeout: c.RemoteCallTimeout,
	}
}

// Lookback is the floor used by a scheduled sync when nothing is stored yet.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.DefaultLookbackDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser collects parse errors so every malformed variable is reported at once.
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return defaultValue
	}
	return v
}

func (p *envParser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return defaultValue
	}
	return v
}

func (p *envParser) int64List(key string) []int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: invalid chat id %q", key, part))
			continue
		}
		out = append(out, v)
	}
	return out
}
