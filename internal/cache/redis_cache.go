package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"fieldorder/backend/internal/domain"
)

// RedisHistoryCache stores history views under a per-customer version number.
// Invalidate bumps the version, which orphans every cached range for that
// customer at once; orphans age out via the entry TTL.
type RedisHistoryCache struct {
	client *redis.Client
}

func NewRedisHistoryCache(addr string, password string, db int) *RedisHistoryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisHistoryCache{client: client}
}

func (c *RedisHistoryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisHistoryCache) Close() error {
	return c.client.Close()
}

func versionKey(customerID string) string {
	return "history:ver:" + customerID
}

func (c *RedisHistoryCache) entryKey(ctx context.Context, customerID, fromDate, toDate string) (string, error) {
	ver, err := c.client.Get(ctx, versionKey(customerID)).Result()
	if err == redis.Nil {
		ver = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("history:%s:%s:%s:%s", customerID, ver, fromDate, toDate), nil
}

func (c *RedisHistoryCache) Get(ctx context.Context, customerID, fromDate, toDate string) (*domain.OrderHistoryResponse, bool, error) {
	key, err := c.entryKey(ctx, customerID, fromDate, toDate)
	if err != nil {
		return nil, false, err
	}

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp domain.OrderHistoryResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, customerID, fromDate, toDate string, value *domain.OrderHistoryResponse, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	key, err := c.entryKey(ctx, customerID, fromDate, toDate)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisHistoryCache) Invalidate(ctx context.Context, customerID string) error {
	return c.client.Incr(ctx, versionKey(customerID)).Err()
}
