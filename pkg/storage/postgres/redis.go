package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
)

// Mirror implements storage.MirrorStore over Redis. Each record is stored as
// a JSON document keyed by id; the document shape matches what the
// query-package document renderer filters against.
type Mirror struct {
	client *redis.Client
}

// NewMirror creates a Redis-backed mirror store.
func NewMirror(config storage.Config) (*Mirror, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Mirror{client: client}, nil
}

// NewMirrorFromClient wraps an existing Redis client.
func NewMirrorFromClient(client *redis.Client) *Mirror {
	return &Mirror{client: client}
}

func mirrorKey(id int64) string {
	return fmt.Sprintf("record:%d", id)
}

func (m *Mirror) Upsert(ctx context.Context, rec *record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := m.client.Set(ctx, mirrorKey(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get fetches the mirrored document for a record. A cache-style miss returns
// nil without error.
func (m *Mirror) Get(ctx context.Context, id int64) (*record.Record, error) {
	data, err := m.client.Get(ctx, mirrorKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var rec record.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		// corrupt entry; drop it so the sweeper rewrites it
		m.client.Del(ctx, mirrorKey(id))
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

func (m *Mirror) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	return nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}
