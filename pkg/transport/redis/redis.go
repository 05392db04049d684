// Package redis wires the engine's external interfaces to Redis: the
// inbound command queue (BRPOP/LPUSH) and the outbound pub/sub channels
// (result@<client>, depth@<market>, trade@<market>, userTrades@<user>).
package redis

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config mirrors the teacher's redis wrapper config shape, renamed to this
// package's domain.
type Config struct {
	ConnectionURL       string `yaml:"connection_url"`
	PoolSize            int    `yaml:"pool_size"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// Init connects to Redis once, failing fast. Use InitWithBackoff for a
// resilient startup path.
func Init(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	opts.ReadTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	opts.WriteTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	opts.ConnMaxIdleTime = time.Duration(cfg.IdleTimeoutSeconds) * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// InitWithBackoff retries Init with exponential backoff, used on process
// startup so a Redis instance that isn't up yet doesn't crash the engine.
func InitWithBackoff(cfg Config, log *zap.Logger) (*redis.Client, error) {
	var client *redis.Client
	operation := func() error {
		c, err := Init(cfg)
		if err != nil {
			log.Warn("redis connect failed, retrying", zap.Error(err))
			return err
		}
		client = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}

	log.Info("connected to redis")
	return client, nil
}
