package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/statistics"
)

// AdminController handles admin-related HTTP requests using repository pattern
type AdminController struct {
	db      *gorm.DB
	repos   *repository.Repositories
	billing *billing.Service
	queue   QueueInspector
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(db *gorm.DB, repos *repository.Repositories, billingService *billing.Service, queue QueueInspector) *AdminController {
	return &AdminController{db: db, repos: repos, billing: billingService, queue: queue}
}

// HandleStats returns the cached dashboard totals
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	if ac.db == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "database unavailable")
	}
	stats, err := statistics.GetDashboardStats(ac.db)
	if err != nil {
		log.Errorf("[Admin] Failed to load dashboard stats: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load statistics")
	}
	return c.JSON(stats)
}

func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	offset, limit, page := pageParams(c)
	total, err := ac.repos.User.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to count users")
	}
	users, err := ac.repos.User.List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load users")
	}
	return c.JSON(fiber.Map{"page": page, "total": total, "pages": totalPages(total, limit), "users": users})
}

// HandleSubscribers lists subscriber rows, most recently reconciled first
func (ac *AdminController) HandleSubscribers(c *fiber.Ctx) error {
	offset, limit, page := pageParams(c)
	subs, total, err := ac.billing.ListSubscribers(c.UserContext(), offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load subscribers")
	}
	return c.JSON(fiber.Map{"page": page, "total": total, "pages": totalPages(total, limit), "subscribers": subs})
}

func (ac *AdminController) HandleWebhookEvents(c *fiber.Ctx) error {
	offset, limit, page := pageParams(c)
	events, total, err := ac.billing.ListWebhookEvents(c.UserContext(), offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load webhook events")
	}
	return c.JSON(fiber.Map{"page": page, "total": total, "pages": totalPages(total, limit), "events": events})
}

func (ac *AdminController) HandleDeleteFeedback(c *fiber.Ctx) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "invalid feedback id")
	}
	if err := ac.repos.Feedback.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "feedback not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to delete feedback")
	}
	statistics.ResetCacheUpdateTimer()
	return c.JSON(fiber.Map{"ok": true})
}

// HandleQueue reports job queue sizes and per-status counters
func (ac *AdminController) HandleQueue(c *fiber.Ctx) error {
	if ac.queue == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "job queue not running")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	stats, err := ac.queue.GetJobStats(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to read queue statistics")
	}
	pending, err := ac.queue.GetQueueSize(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to read queue size")
	}
	processing, err := ac.queue.GetProcessingSize(ctx)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to read processing size")
	}

	byStatus := make(map[string]int64, len(stats))
	for status, n := range stats {
		byStatus[string(status)] = n
	}
	return c.JSON(fiber.Map{"pending": pending, "processing": processing, "stats": byStatus})
}
