package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thrivewithai/thrivewithai/app/controllers"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/middleware"
	"github.com/thrivewithai/thrivewithai/internal/pkg/oauth"
	"github.com/thrivewithai/thrivewithai/internal/pkg/session"
)

type HttpRouter struct {
	deps controllers.Dependencies
	ctrl *controllers.Controllers
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// init oauth providers
	if oauth.Enabled() {
		oauth.Setup()
	}

	// Provider callbacks and probes are registered before the session
	// middleware and never see a user context.
	h.registerPublicRoutes(app)
	h.registerOpsRoutes(app)

	var store billing.Store
	if h.deps.Billing != nil {
		store = h.deps.Billing.Store()
	}
	app.Use(middleware.UserContextMiddleware(store, h.deps.AdminPolicy))

	h.registerOAuthRoutes(app)
}

func NewHttpRouter(deps controllers.Dependencies, ctrl *controllers.Controllers) *HttpRouter {
	return &HttpRouter{deps: deps, ctrl: ctrl}
}
