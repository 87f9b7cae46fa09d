package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"coinledger/database"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr string

	// Logging
	LogLevel string

	// Platform game defaults, used when a business has no settings row
	DailyLimitResetHour int // Hour in UTC when daily quotas reset (0-23)
	DefaultMinBet       int64
	DefaultMaxBet       int64
	DefaultDailyPlays   int64
	DefaultHouseEdge    float64
	JackpotMultiplier   float64

	// Quotas
	WeeklyFreeVotes int64
	DailyInsights   int64

	// Packs
	SpinPackPrice int64
	SpinPackSize  int64
	VotePackPrice int64
	VotePackSize  int64

	// Payment terminal integration
	TerminalWebhookSecret string
	TerminalCoinRate      int64

	// Queue configuration
	QueueBackend           string // "nats", "redis" or "none"
	NATSServers            string // NATS server addresses (comma-separated)
	NATSStream             string
	NATSSubject            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	RedisQueueKey          string
	QueueBatchSize         int
	QueuePollTimeout       time.Duration
	QueuePollInterval      time.Duration // 0 disables the in-process poller
	QueueFailureAlertRatio float64

	// Observability
	OTelEnabled          bool
	OTelExporterType     string // "stdout" or "otlp"
	OTelOTLPEndpoint     string
	OTelServiceName      string
	OTelExportIntervalMs int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("DAILY_LIMIT_RESET_HOUR", 0)
	v.SetDefault("DEFAULT_MIN_BET", 1)
	v.SetDefault("DEFAULT_MAX_BET", 1000)
	v.SetDefault("DEFAULT_DAILY_PLAYS", 10)
	v.SetDefault("DEFAULT_HOUSE_EDGE", 0.05)
	v.SetDefault("JACKPOT_MULTIPLIER", 10.0)

	v.SetDefault("WEEKLY_FREE_VOTES", 2)
	v.SetDefault("DAILY_INSIGHTS", 1)

	v.SetDefault("SPIN_PACK_PRICE", 50)
	v.SetDefault("SPIN_PACK_SIZE", 5)
	v.SetDefault("VOTE_PACK_PRICE", 20)
	v.SetDefault("VOTE_PACK_SIZE", 3)

	v.SetDefault("TERMINAL_COIN_RATE", 1)

	v.SetDefault("QUEUE_BACKEND", "none")
	v.SetDefault("NATS_SERVERS", "nats://nats:4222")
	v.SetDefault("NATS_STREAM", "TERMINAL")
	v.SetDefault("NATS_SUBJECT", "terminal.transactions")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_QUEUE_KEY", "terminal:transactions")
	v.SetDefault("QUEUE_BATCH_SIZE", 10)
	v.SetDefault("QUEUE_POLL_TIMEOUT", "5s")
	v.SetDefault("QUEUE_POLL_INTERVAL", "0s")
	v.SetDefault("QUEUE_FAILURE_ALERT_RATIO", 0.5)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_TYPE", "stdout")
	v.SetDefault("OTEL_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "coinledger")
	v.SetDefault("OTEL_EXPORT_INTERVAL_MS", 30000)
}

// load loads configuration from environment variables and an optional .env file
func load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	// Missing .env is fine, environment variables still apply
	_ = v.ReadInConfig()

	config := &Config{
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DatabaseName: v.GetString("DATABASE_NAME"),
		HTTPAddr:     v.GetString("HTTP_ADDR"),
		LogLevel:     v.GetString("LOG_LEVEL"),

		DailyLimitResetHour: v.GetInt("DAILY_LIMIT_RESET_HOUR"),
		DefaultMinBet:       v.GetInt64("DEFAULT_MIN_BET"),
		DefaultMaxBet:       v.GetInt64("DEFAULT_MAX_BET"),
		DefaultDailyPlays:   v.GetInt64("DEFAULT_DAILY_PLAYS"),
		DefaultHouseEdge:    v.GetFloat64("DEFAULT_HOUSE_EDGE"),
		JackpotMultiplier:   v.GetFloat64("JACKPOT_MULTIPLIER"),

		WeeklyFreeVotes: v.GetInt64("WEEKLY_FREE_VOTES"),
		DailyInsights:   v.GetInt64("DAILY_INSIGHTS"),

		SpinPackPrice: v.GetInt64("SPIN_PACK_PRICE"),
		SpinPackSize:  v.GetInt64("SPIN_PACK_SIZE"),
		VotePackPrice: v.GetInt64("VOTE_PACK_PRICE"),
		VotePackSize:  v.GetInt64("VOTE_PACK_SIZE"),

		TerminalWebhookSecret: v.GetString("TERMINAL_WEBHOOK_SECRET"),
		TerminalCoinRate:      v.GetInt64("TERMINAL_COIN_RATE"),

		QueueBackend:           strings.ToLower(v.GetString("QUEUE_BACKEND")),
		NATSServers:            v.GetString("NATS_SERVERS"),
		NATSStream:             v.GetString("NATS_STREAM"),
		NATSSubject:            v.GetString("NATS_SUBJECT"),
		RedisAddr:              v.GetString("REDIS_ADDR"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		RedisQueueKey:          v.GetString("REDIS_QUEUE_KEY"),
		QueueBatchSize:         v.GetInt("QUEUE_BATCH_SIZE"),
		QueuePollTimeout:       v.GetDuration("QUEUE_POLL_TIMEOUT"),
		QueuePollInterval:      v.GetDuration("QUEUE_POLL_INTERVAL"),
		QueueFailureAlertRatio: v.GetFloat64("QUEUE_FAILURE_ALERT_RATIO"),

		OTelEnabled:          v.GetBool("OTEL_ENABLED"),
		OTelExporterType:     v.GetString("OTEL_EXPORTER_TYPE"),
		OTelOTLPEndpoint:     v.GetString("OTEL_OTLP_ENDPOINT"),
		OTelServiceName:      v.GetString("OTEL_SERVICE_NAME"),
		OTelExportIntervalMs: v.GetInt("OTEL_EXPORT_INTERVAL_MS"),

		Environment: v.GetString("ENVIRONMENT"),
	}

	if config.Environment != "test" {
		if err := config.validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.DailyLimitResetHour < 0 || c.DailyLimitResetHour > 23 {
		return fmt.Errorf("DAILY_LIMIT_RESET_HOUR must be between 0 and 23, got %d", c.DailyLimitResetHour)
	}
	if c.DefaultMinBet <= 0 || c.DefaultMaxBet < c.DefaultMinBet {
		return fmt.Errorf("invalid bet range: min %d, max %d", c.DefaultMinBet, c.DefaultMaxBet)
	}
	if c.DefaultHouseEdge < 0 || c.DefaultHouseEdge >= 1 {
		return fmt.Errorf("DEFAULT_HOUSE_EDGE must be in [0, 1), got %v", c.DefaultHouseEdge)
	}
	if c.TerminalCoinRate <= 0 {
		return fmt.Errorf("TERMINAL_COIN_RATE must be positive")
	}
	switch c.QueueBackend {
	case "nats", "redis", "none":
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND: %s", c.QueueBackend)
	}
	if c.QueueBatchSize <= 0 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be positive")
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		HTTPAddr:               ":0",
		LogLevel:               "debug",
		DailyLimitResetHour:    0,
		DefaultMinBet:          1,
		DefaultMaxBet:          1000,
		DefaultDailyPlays:      10,
		DefaultHouseEdge:       0.05,
		JackpotMultiplier:      10,
		WeeklyFreeVotes:        2,
		DailyInsights:          1,
		SpinPackPrice:          50,
		SpinPackSize:           5,
		VotePackPrice:          20,
		VotePackSize:           3,
		TerminalWebhookSecret:  "test-secret",
		TerminalCoinRate:       1,
		QueueBackend:           "none",
		QueueBatchSize:         10,
		QueuePollTimeout:       time.Second,
		QueueFailureAlertRatio: 0.5,
		OTelServiceName:        "coinledger-test",
	}
}
