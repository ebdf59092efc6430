package cache

import (
	"context"
	"fmt"
	"time"

	"vehicle-service-scheduling/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultIOTimeout   = 500 * time.Millisecond
)

// NewRedisClient connects the lookup cache and notification publisher.
// Timeouts stay well under the lookup budget so a Redis outage falls back to
// live fetches instead of stalling reads.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), client.Options().DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.Info("Successfully connected to Redis")

	return client, nil
}

// Options maps the configuration onto go-redis options, filling in short defaults.
func Options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   1,
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultIOTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultIOTimeout
	}
	opts.PoolTimeout = opts.ReadTimeout + time.Second
	return opts
}
