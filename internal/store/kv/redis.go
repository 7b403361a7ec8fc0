package kv

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Config controls how RedisClient dials the backing Redis instance.
// Zero-value fields fall back to the defaults below.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.PoolTimeout == 0 {
		c.PoolTimeout = 30 * time.Second
	}
	return c
}

// RedisClient wraps the hash/counter/pub-sub half of the backing store:
// ticket hashes, the global ticket id counter, per-service current-number
// pointers and dedup leases. Pure key/value and hash traffic, no streams.
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
	log    *logrus.Entry
}

func NewRedisClient(ctx context.Context, cfg Config) (*RedisClient, error) {
	cfg = cfg.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}

	log := logrus.WithFields(logrus.Fields{"component": "kv", "addr": cfg.Addr})
	log.Info("connected to redis")

	return &RedisClient{client: client, ctx: ctx, log: log}, nil
}

func (rc *RedisClient) Close() error {
	rc.log.Info("closing redis client")
	return rc.client.Close()
}

func (rc *RedisClient) Set(key string, value string, expire time.Duration) error {
	return rc.client.Set(rc.ctx, key, value, expire).Err()
}

// HSet writes multiple hash fields in a single command.
func (rc *RedisClient) HSet(key string, values map[string]interface{}) error {
	var args []interface{}
	for k, v := range values {
		args = append(args, k, v)
	}
	return rc.client.HSet(rc.ctx, key, args...).Err()
}

func (rc *RedisClient) Get(key string) (string, error) {
	result, err := rc.client.Get(rc.ctx, key).Result()
	if err != nil {
		return "", err
	}
	return result, nil
}

func (rc *RedisClient) HGet(key, field string) (string, error) {
	result, err := rc.client.HGet(rc.ctx, key, field).Result()
	if err != nil {
		return "", err
	}
	return result, nil
}

func (rc *RedisClient) HGetAll(key string) (map[string]string, error) {
	result, err := rc.client.HGetAll(rc.ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Incr bumps an integer key by one, used for the global ticket id counter.
func (rc *RedisClient) Incr(key string) (int64, error) {
	return rc.client.Incr(rc.ctx, key).Result()
}

// HIncrBy bumps an integer hash field, used by the statistics recorder for
// running counts and accumulated service-time totals.
func (rc *RedisClient) HIncrBy(key, field string, delta int64) (int64, error) {
	return rc.client.HIncrBy(rc.ctx, key, field, delta).Result()
}

// SetNX is the primitive behind the push dispatcher's dedup lease: it
// only succeeds for the first caller within the lease window.
func (rc *RedisClient) SetNX(key, value string, expire time.Duration) (bool, error) {
	return rc.client.SetNX(rc.ctx, key, value, expire).Result()
}

func (rc *RedisClient) Expire(key string, ttl time.Duration) error {
	return rc.client.Expire(rc.ctx, key, ttl).Err()
}

func (rc *RedisClient) Del(keys ...string) error {
	return rc.client.Del(rc.ctx, keys...).Err()
}

// ScanKeys returns every key matching pattern, used by the analytics
// reader's per-date per-counter stats scan.
func (rc *RedisClient) ScanKeys(pattern string) ([]string, error) {
	var keys []string
	iter := rc.client.Scan(rc.ctx, 0, pattern, 0).Iterator()
	for iter.Next(rc.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Native exposes the underlying go-redis client for callers that need
// pipelining or commands this thin wrapper doesn't cover (used by the
// distributed lock's Lua release script).
func (rc *RedisClient) Native() *redis.Client {
	return rc.client
}

func (rc *RedisClient) Context() context.Context {
	return rc.ctx
}
