// Package redis keeps the latest JSON of every published aggregate in Redis
// under daydata:<kind>:<id>.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

const keyPrefix = "daydata"

// Options configures the cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 0 keeps keys forever
}

// Cache implements storage.SnapshotSink and serves the cached records back.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewCache creates a Cache. It does not connect until first use; call Ping
// to fail early.
func NewCache(opts Options) *Cache {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Cache{client: client, ttl: opts.TTL}
}

// Compile-time interface check.
var _ storage.SnapshotSink = (*Cache)(nil)

// Key returns the Redis key for one aggregate record.
func Key(kind domain.AggregateKind, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, id)
}

// Ping checks the connection.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Name implements storage.SnapshotSink.
func (c *Cache) Name() string {
	return "redis"
}

// Publish overwrites the cached record for every change in one pipeline.
func (c *Cache) Publish(ctx context.Context, changes []storage.Change) error {
	if len(changes) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, ch := range changes {
		data, err := json.Marshal(ch.Record)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", ch.Kind, ch.ID, err)
		}
		pipe.Set(ctx, Key(ch.Kind, ch.ID), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// Get returns the cached JSON of one record. Returns storage.ErrNotFound on a miss.
func (c *Cache) Get(ctx context.Context, kind domain.AggregateKind, id string) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, Key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return json.RawMessage(data), nil
}
