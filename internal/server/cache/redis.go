package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gophmsg:profile:"

// RedisProfileCache stores profiles as JSON strings with a TTL.
type RedisProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ ProfileCache = (*RedisProfileCache)(nil)

func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{rdb: rdb, ttl: ttl}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func (c *RedisProfileCache) Get(ctx context.Context, userID string) (*models.PublicProfile, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var p models.PublicProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("redis: decode profile: %w", err)
	}
	return &p, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, p models.PublicProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+p.ID, raw, c.ttl).Err()
}
