package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
	icuser "github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
)

func deny(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// RequireAPISessionAuth answers 401 JSON for requests without a session.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if icuser.IsLoggedIn(c) {
		return c.Next()
	}
	return deny(c, fiber.StatusUnauthorized, "unauthorized", "login required")
}

// RequireAdmin checks the session email against policy on every request.
func RequireAdmin(policy *security.AdminPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := icuser.GetUserContext(c)
		switch {
		case !uc.IsLoggedIn:
			return deny(c, fiber.StatusUnauthorized, "unauthorized", "login required")
		case !policy.IsAdmin(uc.Email):
			return deny(c, fiber.StatusForbidden, "forbidden", "admin access required")
		}
		return c.Next()
	}
}
