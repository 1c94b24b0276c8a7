// Package redis opens the go-redis client used for reminder claims.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"dossier/internal/platform/config"
)

// Options turns the Redis section of the config into client options. The URL
// carries address, credentials and database; pool and timeouts come from cfg.
func Options(cfg config.RedisConfig) (*goredis.Options, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	return opts, nil
}

// Open connects and pings. Callers check cfg.URL first; Redis is optional.
func Open(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
