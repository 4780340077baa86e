package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"whitelist-bot/internal/application"
	"whitelist-bot/internal/common/config"
	"whitelist-bot/internal/common/metrics"
)

const keyPrefix = "whitelist:"

// RedisStore keeps each record under its own key. Writes are immediate,
// so Save is a no-op kept for interface symmetry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return &RedisStore{client: rdb}
}

// NewRedisStoreFromClient wraps an existing client, used in tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context) error {
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, applicantID string) (*application.Record, error) {
	data, err := s.client.Get(ctx, keyPrefix+applicantID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, applicantID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var rec application.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("corrupt record for %s: %w", applicantID, err)
	}
	return &rec, nil
}

func (s *RedisStore) Set(ctx context.Context, rec *application.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record failed: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+rec.ApplicantID, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	metrics.SnapshotWrites.Inc()
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, applicantID string) error {
	if err := s.client.Del(ctx, keyPrefix+applicantID).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, applicantID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+applicantID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) All(ctx context.Context) (map[string]*application.Record, error) {
	out := make(map[string]*application.Record)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}
		var rec application.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("corrupt record for %s: %w", key, err)
		}
		out[rec.ApplicantID] = &rec
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return out, nil
}
