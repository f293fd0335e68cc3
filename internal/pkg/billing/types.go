package billing

import (
	"time"

	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

// PremiumEntitlementID is the provider entitlement identifier that unlocks premium content.
const PremiumEntitlementID = "premium"

// ProviderCustomer is the provider-side record created for a user.
type ProviderCustomer struct {
	ID        string
	FirstSeen *time.Time
}

// CustomerInfo is the provider's current view of a customer.
type CustomerInfo struct {
	AppUserID    string                     `json:"app_user_id"`
	FirstSeen    *time.Time                 `json:"first_seen,omitempty"`
	Entitlements map[string]EntitlementInfo `json:"entitlements"`
}

type EntitlementInfo struct {
	ProductIdentifier string     `json:"product_identifier"`
	ExpiresDate       *time.Time `json:"expires_date,omitempty"`
	IsActive          bool       `json:"is_active"`
}

func (c *CustomerInfo) PremiumActive() bool {
	if c == nil {
		return false
	}
	e, ok := c.Entitlements[PremiumEntitlementID]
	return ok && e.IsActive
}

// SyncRequest is the body of the client-initiated subscription sync.
type SyncRequest struct {
	CustomerInfo *CustomerInfoSnapshot `json:"customerInfo" validate:"required"`
}

// CustomerInfoSnapshot is the client SDK's view of the customer.
type CustomerInfoSnapshot struct {
	Entitlements map[string]EntitlementSnapshot `json:"entitlements"`
}

type EntitlementSnapshot struct {
	IsActive bool `json:"isActive"`
}

func (c *CustomerInfoSnapshot) PremiumActive() bool {
	if c == nil {
		return false
	}
	e, ok := c.Entitlements[PremiumEntitlementID]
	return ok && e.IsActive
}

// State maps the snapshot onto the entitlement model.
func (c *CustomerInfoSnapshot) State() entitlements.State {
	return entitlements.FromSnapshot(c.PremiumActive())
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	AppUserID       string
	Classification  string
	PayloadJSON     string
	SignatureValid  bool
}
