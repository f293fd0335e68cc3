package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thrivewithai/thrivewithai/app/controllers"
	"github.com/thrivewithai/thrivewithai/internal/pkg/constants"
	"github.com/thrivewithai/thrivewithai/internal/pkg/middleware"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
)

// Pong is the body of GET /ping
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer binds the v1 routes to the controllers
type APIServer struct {
	ctrl   *controllers.Controllers
	policy *security.AdminPolicy
}

// NewAPIServer creates a new API server instance
func NewAPIServer(ctrl *controllers.Controllers, policy *security.AdminPolicy) *APIServer {
	return &APIServer{ctrl: ctrl, policy: policy}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// RegisterHandlers mounts every v1 route on router. Session checks are
// attached per route; the user context is set by the global middleware.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)

	auth := router.Group("/auth")
	auth.Post("/register", s.ctrl.Auth.HandleRegister)
	auth.Post("/login", s.ctrl.Auth.HandleLogin)
	auth.Post("/logout", middleware.RequireAPISessionAuth, s.ctrl.Auth.HandleLogout)

	router.Get("/account", middleware.RequireAPISessionAuth, s.ctrl.Account.HandleGetAccount)
	router.Post(constants.SubscriptionSyncRoute, middleware.RequireAPISessionAuth, s.ctrl.Billing.HandleSubscriptionSync)

	// Catalog
	router.Get("/jobs", s.ctrl.Catalog.HandleListJobs)
	router.Get("/jobs/:slug", s.ctrl.Catalog.HandleGetJob)
	router.Get("/tools", s.ctrl.Catalog.HandleListTools)
	router.Get("/tools/:slug", s.ctrl.Catalog.HandleGetTool)
	router.Get("/use-cases/:slug", s.ctrl.Catalog.HandleGetUseCase)
	router.Get("/glossary", s.ctrl.Catalog.HandleListGlossary)

	// Feedback
	router.Get("/feedback", s.ctrl.Feedback.HandleList)
	router.Post("/feedback", middleware.RequireAPISessionAuth, s.ctrl.Feedback.HandleCreate)
	router.Post("/feedback/:id/vote", middleware.RequireAPISessionAuth, s.ctrl.Feedback.HandleVote)

	admin := router.Group("/admin", middleware.RequireAdmin(s.policy))
	admin.Get("/stats", s.ctrl.Admin.HandleStats)
	admin.Get("/users", s.ctrl.Admin.HandleUsers)
	admin.Get("/subscribers", s.ctrl.Admin.HandleSubscribers)
	admin.Get("/webhook-events", s.ctrl.Admin.HandleWebhookEvents)
	admin.Delete("/feedback/:id", s.ctrl.Admin.HandleDeleteFeedback)
	admin.Get("/queue", s.ctrl.Admin.HandleQueue)
}
