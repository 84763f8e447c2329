// Package config loads service configuration from the environment.
package config

import (
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the full service configuration
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	DB      DBConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
	Tracing TracingConfig
	Dedup   DedupConfig
}

// AppConfig holds service identity settings
type AppConfig struct {
	Name        string `env:"APP_NAME"`
	Environment string `env:"APP_ENV"`
	Version     string `env:"APP_VERSION"`
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"`
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host            string        `env:"DB_HOST"`
	Port            int           `env:"DB_PORT"`
	User            string        `env:"DB_USER"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME"`
	SSLMode         string        `env:"DB_SSL_MODE"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	MigrationsPath  string        `env:"DB_MIGRATIONS_PATH"`
}

// KafkaConfig holds event producer settings
type KafkaConfig struct {
	Enabled      bool          `env:"KAFKA_ENABLED"`
	Brokers      string        `env:"KAFKA_BROKERS"`
	Topic        string        `env:"KAFKA_TOPIC"`
	BatchSize    int           `env:"KAFKA_BATCH_SIZE"`
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT"`
	RequiredAcks int           `env:"KAFKA_REQUIRED_ACKS"`
	Compression  string        `env:"KAFKA_COMPRESSION"`
}

// BrokerList splits the comma-separated broker string.
func (c KafkaConfig) BrokerList() []string {
	parts := strings.Split(c.Brokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

// RedisConfig holds distributed lock settings
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED"`
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

// TracingConfig holds OTLP exporter settings
type TracingConfig struct {
	Enabled  bool   `env:"TRACING_ENABLED"`
	Endpoint string `env:"TRACING_OTLP_ENDPOINT"`
	Protocol string `env:"TRACING_OTLP_PROTOCOL"`
	Insecure bool   `env:"TRACING_OTLP_INSECURE"`
}

// DedupConfig holds merge engine defaults
type DedupConfig struct {
	DefaultCountryCode string        `env:"DEDUP_DEFAULT_COUNTRY_CODE"`
	DefaultStrategy    string        `env:"DEDUP_DEFAULT_STRATEGY"`
	GroupLimit         int           `env:"DEDUP_GROUP_LIMIT"`
	LockTTL            time.Duration `env:"DEDUP_LOCK_TTL"`
}

// defaults returns the configuration used when the environment sets nothing.
func defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:        "clover",
			Environment: "development",
			Version:     "dev",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "clover",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			MigrationsPath:  "db/pg",
		},
		Kafka: KafkaConfig{
			Brokers:      "localhost:9092",
			Topic:        "clover.client-events",
			BatchSize:    100,
			BatchTimeout: time.Second,
			RequiredAcks: -1,
			Compression:  "snappy",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Tracing: TracingConfig{
			Endpoint: "localhost:4317",
			Protocol: "grpc",
			Insecure: true,
		},
		Dedup: DedupConfig{
			DefaultStrategy: "keep-oldest",
			LockTTL:         30 * time.Second,
		},
	}
}

// Load reads an optional .env file and binds the environment over the
// defaults.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := defaults()
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to bind environment config")
	}
	return cfg, nil
}
