package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
)

// ErrNotConfigured is returned by Ping before SetupCache has run.
var ErrNotConfigured = errors.New("cache client not configured")

var client *redis.Client

func options() *redis.Options {
	return &redis.Options{
		Addr:     net.JoinHostPort(env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	}
}

// SetupCache connects the shared client. An unreachable server is only
// logged; callers see the errors on first use.
func SetupCache() {
	opts := options()
	client = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis at %s is not reachable: %v", opts.Addr, err)
		return
	}
	log.Printf("Connected to Redis at %s (db %d)", opts.Addr, opts.DB)
}

// SetClient replaces the shared client, used by tests.
func SetClient(c *redis.Client) {
	client = c
}

func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Ping checks the shared client without creating one.
func Ping(ctx context.Context) error {
	if client == nil {
		return ErrNotConfigured
	}
	return client.Ping(ctx).Err()
}

// SetJSON stores value encoded as JSON.
func SetJSON(key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return GetClient().Set(context.Background(), key, raw, expiration).Err()
}

// GetJSON decodes a cached JSON value into dst. A miss returns redis.Nil.
func GetJSON(key string, dst interface{}) error {
	raw, err := GetClient().Get(context.Background(), key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
