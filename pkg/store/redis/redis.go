package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lzyats/im-antidelete/pkg/push"
)

type Store struct {
	cfg push.RedisSettings
	cli *redis.Client
}

func New(cfg push.RedisSettings) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis: missing host")
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	opts := &redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	return &Store{cfg: cfg, cli: redis.NewClient(opts)}, nil
}

func (s *Store) Close() error { return s.cli.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

// GetString returns the value at key. A missing key is ("", false, nil).
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, push.ErrInvalidArgument
	}
	v, err := s.cli.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetString stores value at key. ttl <= 0 keeps the key forever.
func (s *Store) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return push.ErrInvalidArgument
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.cli.Set(ctx, key, value, ttl).Err()
}
