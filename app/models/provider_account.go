package models

import "time"

// ProviderAccount links one OAuth identity to a user. Provider names are
// stored lower-case; (provider, provider_user_id) is unique.
type ProviderAccount struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	Provider       string    `gorm:"uniqueIndex:provider_uid;size:50;not null" json:"provider"`
	ProviderUserID string    `gorm:"uniqueIndex:provider_uid;size:191;not null" json:"provider_user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
