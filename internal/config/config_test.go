package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeTempConfig(t, `
storage:
  backend: postgres
  postgres_dsn: postgres://localhost/daydata
  migrate: true
redis:
  addr: localhost:6379
  ttl: 1h
source:
  kind: kafka
  kafka:
    brokers: [localhost:9092]
    topic: events
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != "postgres" || !cfg.Storage.Migrate {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Redis.TTL != time.Hour {
		t.Errorf("redis ttl = %v", cfg.Redis.TTL)
	}
	if cfg.Source.Kafka.Topic != "events" {
		t.Errorf("topic = %s", cfg.Source.Kafka.Topic)
	}
	// Unset fields keep defaults.
	if cfg.Source.Kafka.GroupID != "dex-daydata" {
		t.Errorf("group id = %s", cfg.Source.Kafka.GroupID)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("log format = %s", cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DEXDAY_STORAGE_BACKEND": "postgres",
		"DEXDAY_POSTGRES_DSN":    " postgres://db/x ",
		"DEXDAY_KAFKA_BROKERS":   "a:9092, b:9092,",
		"DEXDAY_REDIS_DB":        "3",
		"DEXDAY_REDIS_TTL":       "30m",
		"DEXDAY_MIGRATE":         "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := applyEnv(&cfg, lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Storage.PostgresDSN != "postgres://db/x" {
		t.Errorf("dsn = %q", cfg.Storage.PostgresDSN)
	}
	if len(cfg.Source.Kafka.Brokers) != 2 || cfg.Source.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("brokers = %v", cfg.Source.Kafka.Brokers)
	}
	if cfg.Redis.DB != 3 || cfg.Redis.TTL != 30*time.Minute || !cfg.Storage.Migrate {
		t.Errorf("unexpected overrides: %+v %+v", cfg.Redis, cfg.Storage)
	}

	env["DEXDAY_REDIS_DB"] = "three"
	if err := applyEnv(&cfg, lookup); err == nil {
		t.Error("expected error for non-numeric redis db")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres" }, true},
		{"kafka without brokers", func(c *Config) { c.Source.Kind = "kafka" }, true},
		{"kafka ok", func(c *Config) {
			c.Source.Kind = "kafka"
			c.Source.Kafka.Brokers = []string{"k:9092"}
		}, false},
		{"file without path", func(c *Config) { c.Source.File = "" }, true},
		{"unknown source", func(c *Config) { c.Source.Kind = "ws" }, true},
		{"negative ttl", func(c *Config) { c.Redis.TTL = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
