package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thrivewithai/thrivewithai/app/controllers"
)

// Router registers a set of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, deps controllers.Dependencies) {
	ctrl := controllers.New(deps)
	// Install HttpRouter first to initialize the session store, oauth providers
	// and the global UserContext middleware. The API routes depend on it.
	setup(app, NewHttpRouter(deps, ctrl), NewApiRouter(ctrl, deps.AdminPolicy))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
