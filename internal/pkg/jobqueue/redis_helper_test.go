package jobqueue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
)

// testRedisDB keeps queue tests away from the session and cache databases.
const testRedisDB = 14

// newTestRedis connects to the Redis named by CACHE_HOST/CACHE_PORT and
// skips the test when none answers.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       testRedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// newTestQueue returns a queue in a namespace of its own, removed after the test.
func newTestQueue(t *testing.T, workers int) *Queue {
	t.Helper()

	client := newTestRedis(t)
	q := NewQueue(workers)
	q.client = client
	q.keys = keys{ns: "test:jobs:" + uuid.NewString()}

	t.Cleanup(func() {
		ctx := context.Background()
		var stale []string
		iter := client.Scan(ctx, 0, q.keys.ns+":*", 0).Iterator()
		for iter.Next(ctx) {
			stale = append(stale, iter.Val())
		}
		if len(stale) > 0 {
			_ = client.Del(ctx, stale...).Err()
		}
	})
	return q
}

func waitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
