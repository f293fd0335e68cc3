package router

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/constants"
	"github.com/thrivewithai/thrivewithai/internal/pkg/oauth"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.HealthRoute, h.handleHealth)

	// Billing provider webhooks (no session, signature-verified in controller)
	app.Post(constants.WebhookRevenueCat, h.ctrl.Billing.HandleRevenueCatWebhook)
}

func (h HttpRouter) registerOAuthRoutes(app *fiber.App) {
	if !oauth.Enabled() {
		return
	}
	// Social OAuth
	app.Get("/auth/:provider", h.ctrl.OAuth.HandleBegin)
	app.Get("/auth/:provider/callback", h.ctrl.OAuth.HandleCallback)
}

// handleHealth reports whether the database and cache answer a ping.
func (h HttpRouter) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "ok", "cache": "ok"}
	status := fiber.StatusOK

	if h.deps.DB == nil {
		checks["database"] = "unconfigured"
		status = fiber.StatusServiceUnavailable
	} else if sqlDB, err := h.deps.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	if err := cache.Ping(ctx); errors.Is(err, cache.ErrNotConfigured) {
		checks["cache"] = "unconfigured"
		status = fiber.StatusServiceUnavailable
	} else if err != nil {
		checks["cache"] = "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	checks["ok"] = status == fiber.StatusOK
	return c.Status(status).JSON(checks)
}
