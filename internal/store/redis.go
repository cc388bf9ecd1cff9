package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// RedisConfig configuration for the Redis store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string // Hash holding one field per recipient
}

// Redis is a Store backed by a single Redis hash
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to Redis and checks the connection
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "netcodigo:latest"
	}

	return &Redis{client: client, key: key}, nil
}

// Get returns the latest result for recipient
func (r *Redis) Get(ctx context.Context, recipient string) (*models.ExtractionResult, error) {
	data, err := r.client.HGet(ctx, r.key, recipient).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result models.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// Upsert replaces the result cached for result.Recipient
func (r *Redis) Upsert(ctx context.Context, result *models.ExtractionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := r.client.HSet(ctx, r.key, result.Recipient, data).Err(); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// List returns every cached result, newest first
func (r *Redis) List(ctx context.Context) ([]*models.ExtractionResult, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results := make([]*models.ExtractionResult, 0, len(fields))
	for recipient, data := range fields {
		var result models.ExtractionResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, fmt.Errorf("failed to decode result for %s: %w", recipient, err)
		}
		results = append(results, &result)
	}

	sortNewestFirst(results)
	return results, nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
