package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/thrivewithai/thrivewithai/app/controllers"
	apiv1 "github.com/thrivewithai/thrivewithai/internal/api/v1"
	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
)

type ApiRouter struct {
	ctrl   *controllers.Controllers
	policy *security.AdminPolicy
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", cors.New(corsConfig()), limiter.New(limiterConfig()))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer(h.ctrl, h.policy)
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter(ctrl *controllers.Controllers, policy *security.AdminPolicy) *ApiRouter {
	return &ApiRouter{ctrl: ctrl, policy: policy}
}

// corsConfig allows credentialed requests from CORS_ALLOW_ORIGINS. Without
// an explicit list no cross-origin credentials are allowed.
func corsConfig() cors.Config {
	origins := strings.TrimSpace(env.GetEnv("CORS_ALLOW_ORIGINS", ""))
	if origins == "" || origins == "*" {
		return cors.Config{AllowOrigins: "*"}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept",
	}
}

func limiterConfig() limiter.Config {
	return limiter.Config{
		Max:          env.GetEnvInt("API_RATE_LIMIT", 120),
		Expiration:   time.Minute,
		KeyGenerator: clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "too many requests",
			})
		},
	}
}

// clientKey identifies the caller by its real address behind Cloudflare.
func clientKey(c *fiber.Ctx) string {
	return controllers.ClientIP(c)
}
