package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
	"github.com/thrivewithai/thrivewithai/internal/pkg/utils"
)

type feedbackRequest struct {
	TargetType string `json:"target_type"`
	TargetSlug string `json:"target_slug"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

type voteRequest struct {
	Value int `json:"value" validate:"required,oneof=1 -1"`
}

type feedbackView struct {
	ID         uint   `json:"id"`
	TargetType string `json:"target_type"`
	TargetSlug string `json:"target_slug"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	AuthorName string `json:"author_name"`
	AvatarURL  string `json:"avatar_url"`
	Score      int    `json:"score"`
	CreatedAt  string `json:"created_at"`
}

type FeedbackController struct {
	feedback repository.FeedbackRepository
	catalog  repository.CatalogRepository
	jobs     jobqueue.Enqueuer
	policy   *security.AdminPolicy
}

func NewFeedbackController(feedback repository.FeedbackRepository, catalog repository.CatalogRepository, jobs jobqueue.Enqueuer, policy *security.AdminPolicy) *FeedbackController {
	return &FeedbackController{feedback: feedback, catalog: catalog, jobs: jobs, policy: policy}
}

// HandleCreate stores a rating for a catalog entry and notifies the admins.
func (fc *FeedbackController) HandleCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "request body must be JSON")
	}

	fb := &models.Feedback{
		UserID:     userCtx.UserID,
		TargetType: strings.TrimSpace(req.TargetType),
		TargetSlug: strings.TrimSpace(req.TargetSlug),
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	}
	if err := fb.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	exists, err := fc.catalog.TargetExists(fb.TargetType, fb.TargetSlug)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to check target")
	}
	if !exists {
		return jsonError(c, fiber.StatusNotFound, "not_found", "feedback target not found")
	}

	if err := fc.feedback.Create(fb); err != nil {
		log.Errorf("[Feedback] Failed to store feedback from user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to store feedback")
	}

	fc.notifyAdmins(userCtx, fb)

	return c.Status(fiber.StatusCreated).JSON(fb)
}

func (fc *FeedbackController) notifyAdmins(userCtx usercontext.UserContext, fb *models.Feedback) {
	recipients := fc.policy.Recipients()
	if len(recipients) == 0 || fc.jobs == nil {
		return
	}
	subject := fmt.Sprintf("New feedback on %s/%s (%d/5)", fb.TargetType, fb.TargetSlug, fb.Rating)
	body := fmt.Sprintf("User: %s <%s>\nTarget: %s/%s\nRating: %d\n\n%s\n",
		userCtx.Username, userCtx.Email, fb.TargetType, fb.TargetSlug, fb.Rating, fb.Comment)
	if err := fc.jobs.EnqueueSendMail(recipients, subject, body); err != nil {
		log.Warnf("[Feedback] Failed to enqueue admin notification: %v", err)
	}
}

func (fc *FeedbackController) HandleList(c *fiber.Ctx) error {
	targetType := strings.TrimSpace(c.Query("target_type"))
	targetSlug := strings.TrimSpace(c.Query("target_slug"))
	switch targetType {
	case models.FeedbackTargetJob, models.FeedbackTargetTool, models.FeedbackTargetUseCase:
	default:
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "target_type must be job, tool or use_case")
	}
	if targetSlug == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "target_slug is required")
	}

	offset, limit, page := pageParams(c)
	rows, err := fc.feedback.ListByTarget(targetType, targetSlug, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load feedback")
	}

	items := make([]feedbackView, 0, len(rows))
	for _, r := range rows {
		items = append(items, feedbackView{
			ID:         r.ID,
			TargetType: r.TargetType,
			TargetSlug: r.TargetSlug,
			Rating:     r.Rating,
			Comment:    r.Comment,
			AuthorName: r.AuthorName,
			AvatarURL:  utils.AvatarURL(r.AuthorAvatar, r.AuthorEmail, 64),
			Score:      r.Score,
			CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"page": page, "feedback": items})
}

// HandleVote toggles the caller's vote on a feedback entry.
func (fc *FeedbackController) HandleVote(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	id, ok := parseUintParam(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "invalid feedback id")
	}

	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "request body must be JSON")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "value must be 1 or -1")
	}

	if _, err := fc.feedback.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "feedback not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load feedback")
	}

	if err := fc.feedback.Vote(id, userID, req.Value); err != nil {
		log.Errorf("[Feedback] Vote by user %d on %d failed: %v", userID, id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "failed to store vote")
	}
	return c.JSON(fiber.Map{"ok": true})
}
