// Package redis wraps go-redis/v9 for the two uses the indexer has for a
// shared Redis: cross-process page locks and the page cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
)

// delIfEquals removes a key only while it still holds the caller's value.
var delIfEquals = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Client struct {
	rdb *redis.Client
}

// NewClient connects to cfg.Addr and fails unless the server answers a PING
// within five seconds.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	c := &Client{rdb: rdb}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Client) Close() error { return c.rdb.Close() }

// SetNX stores value under key for ttl unless the key exists, reporting
// whether it did.
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// DelIfEquals atomically deletes key if it still holds value.
func (c *Client) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := delIfEquals.Run(ctx, c.rdb, []string{key}, value).Int()
	if err != nil {
		return false, fmt.Errorf("releasing %s: %w", key, err)
	}
	return n == 1, nil
}

// Get returns the value of key; IsNilError is true of the error when the
// key does not exist.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}
