package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/metrics"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
)

const webhookProcessingTimeout = 15 * time.Second

// BillingController serves the provider webhook and the client sync endpoint.
type BillingController struct {
	service *billing.Service
	config  billing.Config
	jobs    jobqueue.Enqueuer
}

func NewBillingController(service *billing.Service, config billing.Config, jobs jobqueue.Enqueuer) *BillingController {
	return &BillingController{service: service, config: config, jobs: jobs}
}

// HandleRevenueCatWebhook authenticates, records and applies one provider event.
func (bc *BillingController) HandleRevenueCatWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	m := metrics.GetBillingMetrics()

	signed := false
	if bc.config.RequireSignature() {
		signature := firstHeaderValue(c, "X-RevenueCat-Signature", "X-Signature")
		if !billing.VerifyWebhookSignature(rawBody, signature, bc.config.WebhookSecret) {
			m.RecordSignatureRejected()
			log.Warnf("[Billing] Rejected webhook from %s: invalid signature", c.IP())
			return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "webhook signature missing or invalid")
		}
		signed = true
	} else {
		log.Warn("[Billing] REVENUECAT_WEBHOOK_SECRET not set, accepting unsigned webhook")
	}

	envelope, class, err := billing.ParseWebhookEnvelope(rawBody)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
	}
	event := envelope.Event

	// Processing is not bound to the provider's connection.
	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessingTimeout)
	defer cancel()

	created, stored, err := bc.service.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderRevenueCat,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		AppUserID:       event.AppUserID,
		Classification:  class.Name(),
		PayloadJSON:     string(rawBody),
		SignatureValid:  signed,
	})
	if err != nil {
		log.Warnf("[Billing] Could not record webhook event %s: %v", event.ID, err)
		stored = nil
	} else if !created && stored.Succeeded() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	outcome, _, applyErr := bc.service.ApplyWebhookEvent(ctx, event, class)
	if stored != nil {
		if err := bc.service.MarkWebhookProcessed(ctx, stored.ID, outcome, applyErr); err != nil {
			log.Warnf("[Billing] Could not mark webhook event %d processed: %v", stored.ID, err)
		}
	}
	m.RecordWebhookOutcome(class.Name(), outcome)

	if applyErr != nil {
		log.Errorf("[Billing] Webhook %s (%s) for %s failed: %v", event.ID, event.Type, event.AppUserID, applyErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_sync_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": outcome})
}

// HandleSubscriptionSync applies the entitlement snapshot reported by the
// signed-in client.
func (bc *BillingController) HandleSubscriptionSync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	m := metrics.GetBillingMetrics()

	var req billing.SyncRequest
	if err := c.BodyParser(&req); err != nil {
		m.RecordQuerySync("invalid")
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "request body must be JSON")
	}
	if err := validate.Struct(req); err != nil {
		m.RecordQuerySync("invalid")
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "customerInfo is required")
	}

	sub, err := bc.service.SyncSnapshot(c.UserContext(), userCtx.UserID, req.CustomerInfo)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			m.RecordQuerySync("not_found")
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		m.RecordQuerySync("failed")
		log.Errorf("[Billing] Sync for user %d failed: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_sync_failed"})
	}

	if bc.jobs != nil {
		if err := bc.jobs.EnqueuePushLocalState(userCtx.UserID); err != nil {
			log.Warnf("[Billing] Could not enqueue push_local_state for user %d: %v", userCtx.UserID, err)
		}
	}
	m.RecordQuerySync("ok")

	return c.JSON(fiber.Map{
		"success": true,
		"subscription": fiber.Map{
			"status": sub.Status,
			"tier":   sub.Tier,
		},
	})
}
