package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/thrivewithai/thrivewithai/internal/pkg/constants"
	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
	"github.com/thrivewithai/thrivewithai/internal/pkg/metrics"
)

// registerOpsRoutes mounts the Prometheus endpoint and the fiber monitor.
func (h HttpRouter) registerOpsRoutes(app *fiber.App) {
	app.Get(constants.MetricsRoute, metrics.Handler())

	user := env.GetEnv("MONITOR_USER", "admin")
	password := env.GetEnv("MONITOR_PASSWORD", "")
	if password == "" {
		log.Warn("[Router] MONITOR_PASSWORD not set, /monitor disabled")
		return
	}
	app.Get(constants.MonitorRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			user: password,
		},
	}), monitor.New(monitor.Config{Title: "ThriveWithAI Monitor"}))
}
