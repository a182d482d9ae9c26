package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OpenChatGit/autosearch/models"
)

// RedisOptions configures the shared cache backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string        // default "autosearch:"
	TTL       time.Duration // default 1h
}

// RedisCache stores search contexts in Redis so multiple client
// instances can share one cache. Expiry is delegated to the server TTL,
// and capacity to the server's own eviction policy.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *log.Logger

	mu  sync.Mutex
	ttl time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts RedisOptions, logger *log.Logger) (*RedisCache, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "autosearch:"
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client, prefix: opts.KeyPrefix, ttl: opts.TTL, logger: logger}, nil
}

func (c *RedisCache) key(query string) string {
	return c.prefix + models.NormalizeQuery(query)
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, query string) (models.SearchContext, bool, error) {
	data, err := c.client.Get(ctx, c.key(query)).Result()
	if errors.Is(err, redis.Nil) {
		return models.SearchContext{}, false, nil
	}
	if err != nil {
		return models.SearchContext{}, false, fmt.Errorf("redis get: %w", err)
	}
	var sc models.SearchContext
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return models.SearchContext{}, false, fmt.Errorf("decode cached context: %w", err)
	}
	return sc, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, query string, sc models.SearchContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	c.mu.Lock()
	ttl := c.ttl
	c.mu.Unlock()
	if err := c.client.Set(ctx, c.key(query), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, query string) error {
	return c.client.Del(ctx, c.key(query)).Err()
}

// Clear implements Cache. Keys are collected with SCAN so a large cache
// does not block the server the way KEYS would.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	pattern := c.prefix + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// SetTTL implements Cache. Keys already written keep their server-side
// expiry.
func (c *RedisCache) SetTTL(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.ttl = d
	c.mu.Unlock()
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
