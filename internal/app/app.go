// Package app wires configured backends, sinks and sources for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"dex-daydata/internal/config"
	"dex-daydata/internal/ingestion"
	"dex-daydata/internal/storage"
	chstore "dex-daydata/internal/storage/clickhouse"
	"dex-daydata/internal/storage/memory"
	"dex-daydata/internal/storage/migrations"
	pgstore "dex-daydata/internal/storage/postgres"
	redisstore "dex-daydata/internal/storage/redis"
)

// Backend is the opened aggregate store plus optional sinks.
type Backend struct {
	Name       string // memory | postgres
	Transactor storage.Transactor
	Stores     *storage.Stores // non-transactional view for queries
	Sinks      []storage.SnapshotSink
	Cache      *redisstore.Cache     // nil unless redis is configured
	History    *chstore.SnapshotSink // nil unless clickhouse is configured

	closers []func()
}

// Close releases every connection in reverse open order.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackend connects the configured store and sinks. On error everything
// opened so far is closed.
func OpenBackend(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Backend, error) {
	b := &Backend{Name: cfg.Storage.Backend}

	if err := b.openStore(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openSinks(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) openStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) error {
	switch cfg.Storage.Backend {
	case "memory":
		repo := memory.NewRepository()
		b.Transactor = repo
		b.Stores = repo.Stores()
		logger.Info("Using in-memory storage")
		return nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		if cfg.Storage.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
			logger.Info("Postgres migrations applied")
		}

		repo := pgstore.NewRepository(pool)
		b.Transactor = repo
		b.Stores = repo.Stores()
		logger.Info("Using PostgreSQL storage")
		return nil
	}
	return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func (b *Backend) openSinks(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) error {
	if cfg.ClickHouse.DSN != "" {
		var conn *chstore.Conn
		var err error
		if cfg.Storage.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		}
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		b.closers = append(b.closers, func() { conn.Close() })

		b.History = chstore.NewSnapshotSink(conn)
		b.Sinks = append(b.Sinks, b.History)
		logger.Info("ClickHouse snapshot sink enabled")
	}

	if cfg.Redis.Addr != "" {
		cache := redisstore.NewCache(redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		b.closers = append(b.closers, func() { cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			return err
		}

		b.Cache = cache
		b.Sinks = append(b.Sinks, cache)
		logger.WithField("addr", cfg.Redis.Addr).Info("Redis cache sink enabled")
	}
	return nil
}

// OpenSource creates the configured ingestion source.
func OpenSource(cfg *config.Config) (ingestion.Source, error) {
	switch cfg.Source.Kind {
	case "kafka":
		return ingestion.NewKafkaSource(ingestion.KafkaOptions{
			Brokers: cfg.Source.Kafka.Brokers,
			Topic:   cfg.Source.Kafka.Topic,
			GroupID: cfg.Source.Kafka.GroupID,
		})
	case "file":
		return ingestion.NewFileSource(cfg.Source.File)
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}
