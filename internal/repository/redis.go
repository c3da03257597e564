package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shareit/internal/config"
	"shareit/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisProjectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisProjectionCache(client *redis.Client, ttl time.Duration) *RedisProjectionCache {
	return &RedisProjectionCache{
		client: client,
		ttl:    ttl,
	}
}

func projectionKey(itemID int64) string {
	return fmt.Sprintf("item_projection:%d", itemID)
}

func (r *RedisProjectionCache) GetProjection(ctx context.Context, itemID int64) (*models.ItemProjection, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, projectionKey(itemID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get projection from redis: %w", err)
	}

	var proj models.ItemProjection
	if err := json.Unmarshal([]byte(val), &proj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal projection: %w", err)
	}

	return &proj, nil
}

func (r *RedisProjectionCache) SetProjection(ctx context.Context, projection *models.ItemProjection) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(projection)
	if err != nil {
		return fmt.Errorf("failed to marshal projection: %w", err)
	}

	if err := r.client.Set(ctx, projectionKey(projection.ItemID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set projection in redis: %w", err)
	}

	return nil
}

func (r *RedisProjectionCache) InvalidateProjection(ctx context.Context, itemID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, projectionKey(itemID)).Err(); err != nil {
		return fmt.Errorf("failed to delete projection from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
