package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// Redis backs both the settlement queue and the rate cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Settlement provider
	ProviderName      string
	ProviderBaseURL   string
	ProviderSecretKey string
	ProviderTimeout   time.Duration

	// Settlement queue
	SettlementQueue       string
	SettlementMaxAttempts int
	WorkerConcurrency     int

	// Holds and recovery
	ReservationTTL time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int

	// Conversion
	RateCacheTTL time.Duration

	// Rate limiting, e.g. "100-M" for 100 requests/minute
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PROVIDER_NAME", "sandbox")
	viper.SetDefault("PROVIDER_BASE_URL", "")
	viper.SetDefault("PROVIDER_SECRET_KEY", "")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("SETTLEMENT_QUEUE", "settlements")
	viper.SetDefault("SETTLEMENT_MAX_ATTEMPTS", 5)
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("RESERVATION_TTL", "15m")
	viper.SetDefault("SWEEP_INTERVAL", "1m")
	viper.SetDefault("SWEEP_BATCH_SIZE", 100)
	viper.SetDefault("RATE_CACHE_TTL", "30s")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RedisDB = viper.GetInt("REDIS_DB")

	cfg.ProviderName = viper.GetString("PROVIDER_NAME")
	cfg.ProviderBaseURL = viper.GetString("PROVIDER_BASE_URL")
	cfg.ProviderSecretKey = viper.GetString("PROVIDER_SECRET_KEY")
	cfg.ProviderTimeout = parseDurationOr("PROVIDER_TIMEOUT", 10*time.Second)
	if cfg.ProviderName != "sandbox" && cfg.ProviderSecretKey == "" {
		log.Printf("Warning: PROVIDER_SECRET_KEY not set. Provider %s will reject unsigned calls.\n", cfg.ProviderName)
	}

	cfg.SettlementQueue = viper.GetString("SETTLEMENT_QUEUE")
	cfg.SettlementMaxAttempts = viper.GetInt("SETTLEMENT_MAX_ATTEMPTS")
	cfg.WorkerConcurrency = viper.GetInt("WORKER_CONCURRENCY")

	cfg.ReservationTTL = parseDurationOr("RESERVATION_TTL", 15*time.Minute)
	cfg.SweepInterval = parseDurationOr("SWEEP_INTERVAL", time.Minute)
	cfg.SweepBatchSize = viper.GetInt("SWEEP_BATCH_SIZE")

	cfg.RateCacheTTL = parseDurationOr("RATE_CACHE_TTL", 30*time.Second)
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
