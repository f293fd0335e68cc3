package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
)

// Redis databases on the cache server. DB 0 belongs to the cache package.
const (
	SessionDB    = 1
	OAuthStateDB = 2
)

const CookieName = "session_id"

var ErrNoStore = errors.New("session store not initialized")

var sessionStore *session.Store

// NewRedisStorage opens a fiber storage on one database of the cache server.
func NewRedisStorage(db int) *redis.Storage {
	host, port := "localhost", 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	if c := cache.GetClient(); c != nil {
		opts := c.Options()
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		if opts.Password != "" {
			password = opts.Password
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: db,
	})
}

// NewSessionStore builds the Redis backed store for login sessions and
// installs it process-wide. SESSION_TTL_HOURS defaults to 24.
func NewSessionStore() *session.Store {
	sessionStore = session.New(session.Config{
		Storage:        NewRedisStorage(SessionDB),
		KeyLookup:      "cookie:" + CookieName,
		CookieHTTPOnly: true,
		CookieSecure:   env.IsProduction(),
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		Expiration:     time.Duration(env.GetEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
	})
	return sessionStore
}

// SetSessionStore replaces the process-wide store, e.g. with an in-memory one in tests.
func SetSessionStore(store *session.Store) {
	sessionStore = store
}

func GetSessionStore() *session.Store {
	return sessionStore
}

func SetSessionValue(c *fiber.Ctx, key, value string) error {
	if sessionStore == nil {
		return ErrNoStore
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue returns "" when the store, the session or the key is missing.
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}
	v, _ := sess.Get(key).(string)
	return v
}
