package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// WebhookEnvelope is the RevenueCat webhook body.
type WebhookEnvelope struct {
	APIVersion string       `json:"api_version"`
	Event      WebhookEvent `json:"event"`
}

type WebhookEvent struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	AppUserID         string   `json:"app_user_id"`
	OriginalAppUserID string   `json:"original_app_user_id"`
	Aliases           []string `json:"aliases"`
	ProductID         string   `json:"product_id"`
	EntitlementIDs    []string `json:"entitlement_ids"`
	PeriodType        string   `json:"period_type"`
	Store             string   `json:"store"`
	Environment       string   `json:"environment"`
	EventTimestampMs  int64    `json:"event_timestamp_ms"`
	ExpirationAtMs    int64    `json:"expiration_at_ms"`
}

// ParseWebhookEnvelope decodes a webhook body and checks the fields every
// event must carry. app_user_id is only required for events that change state.
func ParseWebhookEnvelope(raw []byte) (*WebhookEnvelope, EventClass, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	env.Event.Type = strings.TrimSpace(env.Event.Type)
	env.Event.AppUserID = strings.TrimSpace(env.Event.AppUserID)
	if env.Event.Type == "" {
		return nil, nil, fmt.Errorf("%w: event.type is required", ErrInvalidPayload)
	}

	class := Classify(env.Event.Type)
	if _, ignored := class.(IgnoredEvent); !ignored && env.Event.AppUserID == "" {
		return nil, nil, fmt.Errorf("%w: event.app_user_id is required", ErrInvalidPayload)
	}
	return &env, class, nil
}

// EventClass is one of GrantEvent, RevokeEvent or IgnoredEvent.
type EventClass interface {
	Name() string
	eventClass()
}

type GrantEvent struct {
	RawType string
}

type RevokeEvent struct {
	RawType string
}

// IgnoredEvent covers types that never change entitlements. Known is false
// for types the provider added after this list was written.
type IgnoredEvent struct {
	RawType string
	Known   bool
}

func (GrantEvent) Name() string   { return "grant" }
func (RevokeEvent) Name() string  { return "revoke" }
func (IgnoredEvent) Name() string { return "ignored" }

func (GrantEvent) eventClass()   {}
func (RevokeEvent) eventClass()  {}
func (IgnoredEvent) eventClass() {}

var (
	grantEventTypes = map[string]struct{}{
		"INITIAL_PURCHASE": {},
		"RENEWAL":          {},
		"PRODUCT_CHANGE":   {},
		"UNCANCELLATION":   {},
	}
	revokeEventTypes = map[string]struct{}{
		"CANCELLATION":  {},
		"EXPIRATION":    {},
		"BILLING_ISSUE": {},
	}
	ignoredEventTypes = map[string]struct{}{
		"TEST":                         {},
		"TRANSFER":                     {},
		"SUBSCRIPTION_PAUSED":          {},
		"SUBSCRIPTION_EXTENDED":        {},
		"NON_RENEWING_PURCHASE":        {},
		"SUBSCRIBER_ALIAS":             {},
		"TEMPORARY_ENTITLEMENT_GRANT":  {},
		"REFUND_REVERSED":              {},
		"INVOICE_ISSUANCE":             {},
		"VIRTUAL_CURRENCY_TRANSACTION": {},
		"EXPERIMENT_ENROLLMENT":        {},
	}
)

func Classify(eventType string) EventClass {
	t := strings.ToUpper(strings.TrimSpace(eventType))
	if _, ok := grantEventTypes[t]; ok {
		return GrantEvent{RawType: t}
	}
	if _, ok := revokeEventTypes[t]; ok {
		return RevokeEvent{RawType: t}
	}
	_, known := ignoredEventTypes[t]
	return IgnoredEvent{RawType: t, Known: known}
}

// TargetState returns the entitlement state an event class moves a subscriber to.
func TargetState(class EventClass) (entitlements.State, bool) {
	switch class.(type) {
	case GrantEvent:
		return entitlements.Grant(), true
	case RevokeEvent:
		return entitlements.Revoke(), true
	default:
		return entitlements.State{}, false
	}
}
