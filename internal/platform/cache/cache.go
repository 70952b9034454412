// Package cache holds the shared Redis client and the JSON helpers the
// progress cache and assistant budget build on. Every key lives under the
// "suraksha:" namespace.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "suraksha"

// ErrCorrupt is returned by GetJSON when a cached value does not decode.
var ErrCorrupt = errors.New("corrupt cache entry")

// Cache owns a Redis client for the lifetime of the process.
type Cache struct {
	Client *redis.Client
}

// ParseURL turns a redis:// or rediss:// URL into client options with the
// server's dial and I/O timeouts applied.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return opts, nil
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging cache at %s: %w", opts.Addr, err)
	}
	return &Cache{Client: client}, nil
}

// Key joins parts into a namespaced key, e.g. Key("completions", "u1")
// yields "suraksha:completions:u1".
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck is used by /readyz.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Getter is the read half of redis.Cmdable used by GetJSON.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Setter is the write half of redis.Cmdable used by SetJSON.
type Setter interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// GetJSON loads key into a value of type T. A missing key reports
// found=false with a nil error. An undecodable value returns ErrCorrupt.
func GetJSON[T any](ctx context.Context, c Getter, key string) (v T, found bool, err error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return v, true, nil
}

// SetJSON stores v under key for ttl.
func SetJSON(ctx context.Context, c Setter, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := c.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
