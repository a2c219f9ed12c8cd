// Package cache хранит проекции для календаря и панели администратора в Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix     = "auditorium:projections"
	generationKey = keyPrefix + ":generation"
	pingTimeout   = 2 * time.Second
)

// RedisCache кэш проекций с поколениями
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisCache создаёт кэш, ключи живут ttl
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Generation текущее поколение кэша. Пока Invalidate не вызывался, это 0
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cache generation: %w", err)
	}
	return gen, nil
}

// Get читает проекцию поколения gen в dst. false, nil при промахе
func (c *RedisCache) Get(ctx context.Context, gen int64, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, projectionKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get projection %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode projection %s: %w", key, err)
	}
	return true, nil
}

// Set сохраняет проекцию поколения gen в JSON
func (c *RedisCache) Set(ctx context.Context, gen int64, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode projection %s: %w", key, err)
	}

	if err := c.client.Set(ctx, projectionKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set projection %s: %w", key, err)
	}
	return nil
}

// Invalidate начинает новое поколение. Старые ключи истекут по TTL
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

func projectionKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, gen, key)
}
