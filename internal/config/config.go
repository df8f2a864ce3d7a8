// Конфигурация из переменных окружения
package stamps

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	// local store: sqlite | redis
	LocalStore string
	SQLitePath string
	Redis      RedisConfig

	Remote RemoteConfig

	Kafka  KafkaConfig
	Rabbit RabbitConfig

	BackendURL string
	JWTSecret  string

	// каталог продуктов, JSON [{productId, price, offerToken}]
	Catalog         string
	PurchaseWorkers int

	OutboxMaxTries int
	OutboxInterval time.Duration

	OtelEndpoint string
}

type RedisConfig struct {
	Addr     string
	User     string
	Password string
}

type RemoteConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type KafkaConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

type RabbitConfig struct {
	URL      string
	Port     string
	User     string
	Password string
	VHost    string

	PurchasesQueue string
	ConfirmsQueue  string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:        getEnv("STAMPS_ENV", "development"),
		HTTPPort:   getEnv("STAMPS_HTTP_PORT", "8080"),
		LocalStore: getEnv("STAMPS_LOCAL_STORE", "sqlite"),
		SQLitePath: getEnv("STAMPS_SQLITE_PATH", "stamps.db"),
		Redis: RedisConfig{
			Addr:     os.Getenv("STAMPS_CACHE_URL"),
			User:     os.Getenv("STAMPS_CACHE_USER"),
			Password: os.Getenv("STAMPS_CACHE_PWD"),
		},
		Remote: RemoteConfig{
			Host:     os.Getenv("STAMPS_DB"),
			Port:     getEnv("STAMPS_DB_PORT", "5432"),
			User:     os.Getenv("STAMPS_DB_USER"),
			Password: os.Getenv("STAMPS_DB_PASSWORD"),
			Database: os.Getenv("STAMPS_DB_BASE"),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_REDEMPTIONS_URL"),
			Topic:   getEnv("KAFKA_REDEMPTIONS_TOPIC", "redemptions"),
			GroupID: getEnv("KAFKA_REDEMPTIONS_GROUP", "stamps_realtime"),
		},
		Rabbit: RabbitConfig{
			URL:      os.Getenv("RABBIT_URL"),
			Port:     getEnv("RABBIT_PORT", "5672"),
			User:     os.Getenv("RABBIT_USER"),
			Password: os.Getenv("RABBIT_PASSWORD"),
			VHost:    getEnv("RABBIT_VHOST", "stamps"),

			PurchasesQueue: getEnv("RABBIT_PURCHASES_QUEUE", "purchases"),
			ConfirmsQueue:  getEnv("RABBIT_CONFIRMS_QUEUE", "purchase_confirms"),
		},
		BackendURL:      os.Getenv("STAMPS_BACKEND_URL"),
		JWTSecret:       os.Getenv("STAMPS_JWT_SECRET"),
		Catalog:         os.Getenv("STAMPS_CATALOG"),
		PurchaseWorkers: getInt("STAMPS_PURCHASE_WORKERS", 2),
		OutboxMaxTries:  getInt("STAMPS_OUTBOX_TRIES", 5),
		OutboxInterval:  getDuration("STAMPS_OUTBOX_INTERVAL", 10*time.Second),
		OtelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	switch cfg.LocalStore {
	case "sqlite":
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("env STAMPS_CACHE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("env STAMPS_LOCAL_STORE: unknown store %q", cfg.LocalStore)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("env STAMPS_JWT_SECRET is not set")
	}
	return cfg, nil
}

// DSN удаленной базы
func (r RemoteConfig) DSN() (string, error) {
	if r.Host == "" {
		return "", fmt.Errorf("env STAMPS_DB is not set")
	}
	if r.User == "" {
		return "", fmt.Errorf("env STAMPS_DB_USER is not set")
	}
	if r.Password == "" {
		return "", fmt.Errorf("env STAMPS_DB_PASSWORD is not set")
	}
	if r.Database == "" {
		return "", fmt.Errorf("env STAMPS_DB_BASE is not set")
	}
	return "postgres://" + r.User + ":" + r.Password + "@" + r.Host + ":" + r.Port + "/" + r.Database, nil
}

func (r RabbitConfig) DSN() (string, error) {
	if r.URL == "" {
		return "", fmt.Errorf("env RABBIT_URL is not set")
	}
	if r.User == "" {
		return "", fmt.Errorf("env RABBIT_USER is not set")
	}
	return "amqp://" + r.User + ":" + r.Password + "@" + r.URL + ":" + r.Port + "/" + r.VHost, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// при ошибке разбора - значение по умолчанию
func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
