// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	RabbitMQ      RabbitMQConfig
	Elasticsearch ElasticsearchConfig
	CloudPayments ProviderConfig
	YooKassa      ProviderConfig
	Zakat         ZakatConfig
	Intents       IntentConfig
	RateLimit     RateLimitConfig
	Cache         CacheConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	BodyLimit    int64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type ElasticsearchConfig struct {
	Enabled     bool
	Addresses   []string
	Username    string
	Password    string
	IndexPrefix string
}

// ProviderConfig holds the credentials of one payment provider.
type ProviderConfig struct {
	PublicID  string
	APISecret string
	ReturnURL string
}

type ZakatConfig struct {
	Nisab    decimal.Decimal
	Rate     decimal.Decimal
	Currency string
}

// IntentConfig controls the stale pending intent sweeper.
type IntentConfig struct {
	PendingTTL    time.Duration
	SweepSchedule string
	SweepBatch    int
}

type RateLimitConfig struct {
	PublicPerMinute int
	APIPerMinute    int
}

type CacheConfig struct {
	CampaignTTL    time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			BodyLimit:    int64(getIntEnv("SERVER_BODY_LIMIT", 1<<20)),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 24*time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "donation_events"),
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:     getBoolEnv("SEARCH_ENABLED", true),
			Addresses:   getListEnv("ELASTICSEARCH_URLS"),
			Username:    getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:    getEnv("ELASTICSEARCH_PASSWORD", ""),
			IndexPrefix: getEnv("ELASTICSEARCH_INDEX_PREFIX", "sadaka"),
		},
		CloudPayments: ProviderConfig{
			PublicID:  getEnv("CLOUDPAYMENTS_PUBLIC_ID", ""),
			APISecret: getEnv("CLOUDPAYMENTS_API_SECRET", ""),
		},
		YooKassa: ProviderConfig{
			PublicID:  getEnv("YOOKASSA_SHOP_ID", ""),
			APISecret: getEnv("YOOKASSA_SECRET_KEY", ""),
			ReturnURL: getEnv("YOOKASSA_RETURN_URL", "https://sadaka.app/payment/return"),
		},
		Zakat: ZakatConfig{
			Nisab:    getDecimalEnv("ZAKAT_NISAB", decimal.NewFromInt(952389)),
			Rate:     getDecimalEnv("ZAKAT_RATE", decimal.RequireFromString("0.025")),
			Currency: getEnv("ZAKAT_CURRENCY", "RUB"),
		},
		Intents: IntentConfig{
			PendingTTL:    getDurationEnv("INTENT_PENDING_TTL", 24*time.Hour),
			SweepSchedule: getEnv("INTENT_SWEEP_SCHEDULE", "@every 15m"),
			SweepBatch:    getIntEnv("INTENT_SWEEP_BATCH", 200),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: getIntEnv("RATE_LIMIT_PUBLIC", 150),
			APIPerMinute:    getIntEnv("RATE_LIMIT_API", 60),
		},
		Cache: CacheConfig{
			CampaignTTL:    getDurationEnv("CACHE_CAMPAIGN_TTL", 5*time.Minute),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
