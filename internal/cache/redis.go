// Package cache holds the Redis-backed auth context cache and rate limiters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientName is reported to Redis via CLIENT SETNAME.
const clientName = "recipe-api"

// Options tunes the Redis connection pool. Zero values keep the go-redis
// defaults.
type Options struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// Cache wraps the Redis client shared by the auth cache and the limiters.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and pings it.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := clientOptions(redisURL, opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func clientOptions(redisURL string, opts Options) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.ClientName = clientName
	opt.ConnMaxIdleTime = 5 * time.Minute
	if opts.PoolSize > 0 {
		opt.PoolSize = opts.PoolSize
	}
	if opts.MinIdleConns > 0 {
		opt.MinIdleConns = opts.MinIdleConns
	}
	if opts.DialTimeout > 0 {
		opt.DialTimeout = opts.DialTimeout
	}
	return opt, nil
}

// Ping checks Redis connectivity for /readyz.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client to tests that need to flush state.
func (c *Cache) Client() *redis.Client {
	return c.client
}
