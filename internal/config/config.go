package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config is populated from environment variables.
type Config struct {
	App    AppConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Icepay IcepayConfig
	Kafka  KafkaConfig
	Worker WorkerConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string

	// PublicBaseURL is the externally reachable origin used to build the
	// ICEPAY return and cancel URLs.
	PublicBaseURL string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// IcepayConfig holds the merchant credentials. MerchantID and SecretCode
// have no defaults.
type IcepayConfig struct {
	MerchantID string
	SecretCode string
	APIURL     string
	TestMode   bool
	Timeout    time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type WorkerConfig struct {
	Concurrency int

	// RetrySchedule is an asynq cron spec for the postback retry job.
	RetrySchedule  string
	RetryBatchSize int
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "ICEPAY Gateway"),
			Environment:   getEnv("APP_ENV", "development"),
			Port:          getEnv("APP_PORT", "8080"),
			Version:       getEnv("APP_VERSION", "1.0.0"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTTL: getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
		},
		Icepay: IcepayConfig{
			MerchantID: os.Getenv("ICEPAY_MERCHANT_ID"),
			SecretCode: os.Getenv("ICEPAY_SECRET_CODE"),
			APIURL:     getEnv("ICEPAY_API_URL", "https://pay.icepay.eu"),
			TestMode:   getEnvBool("ICEPAY_TEST_MODE", false),
			Timeout:    getEnvDuration("ICEPAY_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "payment.status_changed"),
		},
		Worker: WorkerConfig{
			Concurrency:    getEnvInt("WORKER_CONCURRENCY", 5),
			RetrySchedule:  getEnv("POSTBACK_RETRY_SCHEDULE", "@every 10m"),
			RetryBatchSize: getEnvInt("POSTBACK_RETRY_BATCH", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.App,
		validation.Field(&c.App.Port, validation.Required, is.Port),
		validation.Field(&c.App.PublicBaseURL, validation.Required, is.URL),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	if err := validation.ValidateStruct(&c.Icepay,
		validation.Field(&c.Icepay.MerchantID, validation.Required.Error("ICEPAY_MERCHANT_ID is required"), is.Digit),
		validation.Field(&c.Icepay.SecretCode, validation.Required.Error("ICEPAY_SECRET_CODE is required")),
		validation.Field(&c.Icepay.APIURL, validation.Required, is.URL),
	); err != nil {
		return fmt.Errorf("icepay: %w", err)
	}

	if c.Kafka.Enabled {
		if err := validation.Validate(c.Kafka.Brokers, validation.Required); err != nil {
			return fmt.Errorf("kafka brokers: %w", err)
		}
	}

	if c.App.Environment == "production" && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
