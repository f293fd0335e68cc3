package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
	"github.com/thrivewithai/thrivewithai/internal/pkg/session"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// The subscription is read from the store on each request so a revoke takes
// effect immediately; read failures degrade to the free tier.
func UserContextMiddleware(store billing.Store, policy *security.AdminPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on /auth/* routes.
		if strings.HasPrefix(c.Path(), "/auth/") {
			return c.Next()
		}

		sessionStore := session.GetSessionStore()
		if sessionStore == nil {
			usercontext.Set(c, usercontext.Anonymous())
			return c.Next()
		}
		sess, err := sessionStore.Get(c)
		if err != nil {
			usercontext.Set(c, usercontext.Anonymous())
			return c.Next()
		}

		userID, ok := sess.Get(usercontext.SessionUserID).(uint)
		if !ok || userID == 0 {
			usercontext.Set(c, usercontext.Anonymous())
			return c.Next()
		}
		username, _ := sess.Get(usercontext.SessionUsername).(string)
		email, _ := sess.Get(usercontext.SessionEmail).(string)

		usercontext.Set(c, usercontext.UserContext{
			UserID:       userID,
			Username:     username,
			Email:        email,
			IsLoggedIn:   true,
			IsAdmin:      policy.IsAdmin(email),
			Subscription: LoadSubscription(c.UserContext(), store, userID),
		})
		return c.Next()
	}
}

// LoadSubscription returns the stored entitlement state, or free when the
// subscriber is missing or cannot be read.
func LoadSubscription(ctx context.Context, store billing.Store, userID uint) entitlements.State {
	if store == nil {
		return entitlements.Free()
	}
	sub, err := store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, billing.ErrNotFound) {
			log.Warnf("[UserContext] Failed to load subscription for user %d: %v", userID, err)
		}
		return entitlements.Free()
	}
	return sub.State().Normalize()
}
