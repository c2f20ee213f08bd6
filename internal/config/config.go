package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Provider   ProviderConfig
	Settlement SettlementConfig
	Notify     NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// ProviderConfig selects and configures the payment provider client.
type ProviderConfig struct {
	Mode           string // "sandbox" or "http"
	BaseURL        string
	ClientID       string
	ClientSecret   string
	Currency       string
	TimeoutSeconds int
}

// SettlementConfig controls the background settlement worker.
type SettlementConfig struct {
	SweepIntervalSeconds int
	SweepBatchSize       int
	IdempotencyTTLHours  int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escrow-settlement-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Provider: ProviderConfig{
			Mode:           getEnv("PROVIDER_MODE", "sandbox"),
			BaseURL:        getEnv("PROVIDER_BASE_URL", ""),
			ClientID:       os.Getenv("PROVIDER_CLIENT_ID"),
			ClientSecret:   os.Getenv("PROVIDER_CLIENT_SECRET"),
			Currency:       getEnv("PROVIDER_CURRENCY", "USD"),
			TimeoutSeconds: getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 10),
		},
		Settlement: SettlementConfig{
			SweepIntervalSeconds: getEnvAsInt("SETTLEMENT_SWEEP_INTERVAL_SECONDS", 60),
			SweepBatchSize:       getEnvAsInt("SETTLEMENT_SWEEP_BATCH_SIZE", 50),
			IdempotencyTTLHours:  getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24),
		},
		Notify: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns the settlement sweep period.
func (s SettlementConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// IdempotencyTTL returns how long idempotency keys are retained.
func (s SettlementConfig) IdempotencyTTL() time.Duration {
	if s.IdempotencyTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.IdempotencyTTLHours) * time.Hour
}

// Timeout returns the provider HTTP timeout.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
