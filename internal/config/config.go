// Package config loads service settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds settings for both binaries.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Source     SourceConfig     `yaml:"source"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// StorageConfig selects the aggregate store.
type StorageConfig struct {
	Backend     string `yaml:"backend"` // memory | postgres
	PostgresDSN string `yaml:"postgres_dsn"`
	Migrate     bool   `yaml:"migrate"` // apply embedded migrations on startup
}

// ClickHouseConfig enables the snapshot history sink when DSN is set.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the latest-value cache sink when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// SourceConfig selects where ingestion messages come from.
type SourceConfig struct {
	Kind  string      `yaml:"kind"` // kafka | file
	File  string      `yaml:"file"` // JSON lines path, "-" for stdin
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig configures the Kafka consumer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// HTTPConfig configures the query API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Storage: StorageConfig{Backend: "memory"},
		Redis:   RedisConfig{TTL: 48 * time.Hour},
		Source: SourceConfig{
			Kind: "file",
			File: "-",
			Kafka: KafkaConfig{
				Topic:   "dex-events",
				GroupID: "dex-daydata",
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		HTTP:    HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path (optional), then a .env file in the working directory if
// present, then DEXDAY_* environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides cfg from environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	str("DEXDAY_STORAGE_BACKEND", &cfg.Storage.Backend)
	str("DEXDAY_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("DEXDAY_CLICKHOUSE_DSN", &cfg.ClickHouse.DSN)
	str("DEXDAY_REDIS_ADDR", &cfg.Redis.Addr)
	str("DEXDAY_REDIS_PASSWORD", &cfg.Redis.Password)
	str("DEXDAY_SOURCE", &cfg.Source.Kind)
	str("DEXDAY_SOURCE_FILE", &cfg.Source.File)
	str("DEXDAY_KAFKA_TOPIC", &cfg.Source.Kafka.Topic)
	str("DEXDAY_KAFKA_GROUP", &cfg.Source.Kafka.GroupID)
	str("DEXDAY_LOG_LEVEL", &cfg.Logging.Level)
	str("DEXDAY_LOG_FORMAT", &cfg.Logging.Format)
	str("DEXDAY_LOG_OUTPUT", &cfg.Logging.Output)
	str("DEXDAY_METRICS_ADDR", &cfg.Metrics.Addr)
	str("DEXDAY_HTTP_ADDR", &cfg.HTTP.Addr)

	if v, ok := lookup("DEXDAY_KAFKA_BROKERS"); ok {
		cfg.Source.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("DEXDAY_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEXDAY_MIGRATE: %w", err)
		}
		cfg.Storage.Migrate = b
	}
	if v, ok := lookup("DEXDAY_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEXDAY_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := lookup("DEXDAY_REDIS_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DEXDAY_REDIS_TTL: %w", err)
		}
		cfg.Redis.TTL = d
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}

	switch c.Source.Kind {
	case "file":
		if c.Source.File == "" {
			return fmt.Errorf("source.file is required for the file source")
		}
	case "kafka":
		if len(c.Source.Kafka.Brokers) == 0 {
			return fmt.Errorf("source.kafka.brokers is required for the kafka source")
		}
		if c.Source.Kafka.Topic == "" {
			return fmt.Errorf("source.kafka.topic is required for the kafka source")
		}
		if c.Source.Kafka.GroupID == "" {
			return fmt.Errorf("source.kafka.group_id is required for the kafka source")
		}
	default:
		return fmt.Errorf("source.kind must be kafka or file, got %q", c.Source.Kind)
	}

	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	return nil
}
