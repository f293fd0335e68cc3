package models

import (
	"time"

	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

// Subscriber is the locally cached entitlement state of one user.
// ProviderCustomerID stays NULL until the billing provider has a customer record.
type Subscriber struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	UserID             uint                `gorm:"not null;uniqueIndex" json:"user_id"`
	ProviderCustomerID *string             `gorm:"type:varchar(191);uniqueIndex" json:"provider_customer_id"`
	Tier               entitlements.Tier   `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	Status             entitlements.Status `gorm:"type:varchar(20);not null;default:'free'" json:"status"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}

// State returns the tier/status pair the gating policy works on.
func (s *Subscriber) State() entitlements.State {
	if s == nil {
		return entitlements.Free()
	}
	return entitlements.State{Tier: s.Tier, Status: s.Status}
}

func (s *Subscriber) CustomerID() string {
	if s == nil || s.ProviderCustomerID == nil {
		return ""
	}
	return *s.ProviderCustomerID
}
