package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kjannette/stroomslim-backend/internal/models"
)

const seriesKeyPrefix = "prices:"

// Redis shares cached series between processes (API replicas and the
// one-shot alert command).
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 1
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultSeriesTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (c *Redis) GetSeries(ctx context.Context, key string) ([]models.PricePoint, error) {
	raw, err := c.client.Get(ctx, seriesKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var points []models.PricePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("decode cached series: %w", err)
	}
	return points, nil
}

func (c *Redis) SetSeries(ctx context.Context, key string, points []models.PricePoint) error {
	raw, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	if err := c.client.Set(ctx, seriesKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache series: %w", err)
	}
	return nil
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
