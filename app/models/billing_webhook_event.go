package models

import "time"

const BillingProviderRevenueCat = "revenuecat"

// Webhook processing outcomes stored on BillingWebhookEvent.Outcome.
const (
	WebhookOutcomeApplied  = "applied"
	WebhookOutcomeIgnored  = "ignored"
	WebhookOutcomeUnmapped = "unmapped"
	WebhookOutcomeFailed   = "failed"
)

// BillingWebhookEvent stores authenticated provider webhook deliveries with
// deduplication metadata.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	AppUserID       string     `gorm:"type:varchar(191);index" json:"app_user_id"`
	Classification  string     `gorm:"type:varchar(20)" json:"classification"`
	Outcome         string     `gorm:"type:varchar(20);index" json:"outcome"`
	SignatureValid  bool       `gorm:"not null;default:false" json:"signature_valid"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Succeeded reports whether an earlier delivery of this event finished without error.
func (e *BillingWebhookEvent) Succeeded() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError == "" && e.Outcome != WebhookOutcomeFailed
}
