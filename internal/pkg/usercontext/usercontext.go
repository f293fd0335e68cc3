package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

// UserContext is what the middleware knows about the caller.
type UserContext struct {
	UserID       uint               `json:"user_id"`
	Username     string             `json:"username"`
	Email        string             `json:"email"`
	IsLoggedIn   bool               `json:"is_logged_in"`
	IsAdmin      bool               `json:"is_admin"`
	Subscription entitlements.State `json:"subscription"`
}

// Anonymous is the context of a request without a session.
func Anonymous() UserContext {
	return UserContext{Subscription: entitlements.Free()}
}

// Set attaches uc to the request.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(localsKey, uc)
}

// GetUserContext returns the context set by the middleware, or Anonymous.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(localsKey).(UserContext); ok {
		return ctx
	}
	return Anonymous()
}

func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID is 0 for anonymous requests.
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// Subscription returns the entitlement state loaded for this request.
func Subscription(c *fiber.Ctx) entitlements.State {
	return GetUserContext(c).Subscription
}
