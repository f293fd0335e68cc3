package models

// DashboardStats is the aggregate shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers         int64 `json:"total_users"`
	PremiumSubscribers int64 `json:"premium_subscribers"`
	TotalFeedback      int64 `json:"total_feedback"`
	UnmappedWebhooks   int64 `json:"unmapped_webhooks"`
}
