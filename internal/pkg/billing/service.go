package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/metrics"
)

const appUserIDPrefix = "twai_"

// Service reconciles provider subscription state into local Subscriber records.
type Service struct {
	store    Store
	events   EventLog
	provider Provider
}

// NewService creates a billing service from injected dependencies.
func NewService(store Store, events EventLog, provider Provider) *Service {
	return &Service{store: store, events: events, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider Provider) *Service {
	return NewService(NewStore(db), NewEventLog(db), provider)
}

func (s *Service) Store() Store {
	return s.store
}

// NewAppUserID returns a fresh provider-side identifier.
func NewAppUserID() string {
	return appUserIDPrefix + uuid.NewString()
}

// EnsureSubscriber creates the free subscriber row for a user if it is missing.
func (s *Service) EnsureSubscriber(ctx context.Context, userID uint) (*models.Subscriber, error) {
	return s.store.Create(ctx, userID)
}

// ProvisionCustomer creates the provider customer for a user and stores its id.
// A user that already has a customer id is returned unchanged.
func (s *Service) ProvisionCustomer(ctx context.Context, userID uint, email string) (*models.Subscriber, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerID() != "" {
		return sub, nil
	}

	customer, err := s.provider.CreateCustomer(ctx, NewAppUserID(), email)
	if err != nil {
		metrics.GetBillingMetrics().RecordProviderFailure("create_customer")
		return nil, err
	}

	sub, err = s.store.AssignProviderCustomerID(ctx, userID, customer.ID)
	if errors.Is(err, ErrProviderCustomerIDImmutable) {
		log.Warnf("[Billing] User %d already linked to %s, discarding customer %s", userID, sub.CustomerID(), customer.ID)
		return sub, nil
	}
	return sub, err
}

// FetchCustomerInfo returns the provider's view of a user, or nil when the
// user has no customer yet or the provider does not know it.
func (s *Service) FetchCustomerInfo(ctx context.Context, userID uint) (*CustomerInfo, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerID() == "" {
		return nil, nil
	}

	info, err := s.provider.FetchCustomerInfo(ctx, sub.CustomerID())
	if err != nil {
		metrics.GetBillingMetrics().RecordProviderFailure("fetch_customer_info")
		return nil, err
	}
	return info, nil
}

// RefreshFromProvider stores the provider's current entitlement for a user.
// It returns nil without writing when the user has no customer yet or the
// provider does not know the customer.
func (s *Service) RefreshFromProvider(ctx context.Context, userID uint) (*models.Subscriber, error) {
	info, err := s.FetchCustomerInfo(ctx, userID)
	if err != nil || info == nil {
		return nil, err
	}
	return s.store.Upsert(ctx, userID, entitlements.FromSnapshot(info.PremiumActive()))
}

// PushLocalState mirrors the stored tier and status to the provider.
func (s *Service) PushLocalState(ctx context.Context, userID uint) error {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sub.CustomerID() == "" {
		return nil
	}

	if err := s.provider.PushLocalState(ctx, sub.CustomerID(), sub.State()); err != nil {
		metrics.GetBillingMetrics().RecordProviderFailure("push_local_state")
		return err
	}
	return nil
}

// SyncSnapshot applies a client-reported customer snapshot. A user without a
// subscriber row yields ErrNotFound and nothing is written.
func (s *Service) SyncSnapshot(ctx context.Context, userID uint, snapshot *CustomerInfoSnapshot) (*models.Subscriber, error) {
	if snapshot == nil {
		return nil, errors.New("customer info is required")
	}
	if _, err := s.store.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Upsert(ctx, userID, snapshot.State())
}

// ApplyWebhookEvent moves the subscriber addressed by a classified event to
// its target state and returns the processing outcome.
func (s *Service) ApplyWebhookEvent(ctx context.Context, event WebhookEvent, class EventClass) (string, *models.Subscriber, error) {
	m := metrics.GetBillingMetrics()

	target, ok := TargetState(class)
	if !ok {
		if ig, isIgnored := class.(IgnoredEvent); isIgnored && !ig.Known {
			log.Warnf("[Billing] Unknown webhook event type %q ignored", ig.RawType)
			m.RecordUnknownEventType(ig.RawType)
		}
		return models.WebhookOutcomeIgnored, nil, nil
	}

	sub, err := s.store.GetByProviderCustomerID(ctx, event.AppUserID)
	if errors.Is(err, ErrNotFound) {
		log.Warnw("[Billing] Webhook for unmapped customer",
			"event_id", event.ID,
			"event_type", event.Type,
			"app_user_id", event.AppUserID,
		)
		m.RecordUnmappedCustomer()
		return models.WebhookOutcomeUnmapped, nil, nil
	}
	if err != nil {
		return models.WebhookOutcomeFailed, nil, fmt.Errorf("lookup subscriber: %w", err)
	}

	updated, err := s.store.Upsert(ctx, sub.UserID, target)
	if err != nil {
		return models.WebhookOutcomeFailed, nil, fmt.Errorf("apply %s event: %w", class.Name(), err)
	}
	return models.WebhookOutcomeApplied, updated, nil
}

// RecordWebhookEvent stores a webhook delivery. created is false when the
// provider event id was seen before; existing is then the earlier record.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	p := strings.ToLower(strings.TrimSpace(in.Provider))
	eventType := strings.TrimSpace(in.EventType)
	if p == "" || eventType == "" {
		return false, nil, errors.New("provider and event type are required")
	}

	event := &models.BillingWebhookEvent{
		Provider:        p,
		ProviderEventID: strings.TrimSpace(in.ProviderEventID),
		EventType:       eventType,
		AppUserID:       strings.TrimSpace(in.AppUserID),
		Classification:  in.Classification,
		SignatureValid:  in.SignatureValid,
		PayloadJSON:     in.PayloadJSON,
	}
	if event.ProviderEventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		event.ProviderEventID = "sha256_" + hex.EncodeToString(sum[:])
	}
	return s.events.Record(ctx, event)
}

func (s *Service) MarkWebhookProcessed(ctx context.Context, id uint, outcome string, processingErr error) error {
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
		if len(msg) > 2000 {
			msg = msg[:2000]
		}
	}
	return s.events.Finish(ctx, id, outcome, msg)
}

func (s *Service) ListWebhookEvents(ctx context.Context, offset, limit int) ([]models.BillingWebhookEvent, int64, error) {
	return s.events.List(ctx, offset, limit)
}

func (s *Service) ListSubscribers(ctx context.Context, offset, limit int) ([]models.Subscriber, int64, error) {
	return s.store.List(ctx, offset, limit)
}
