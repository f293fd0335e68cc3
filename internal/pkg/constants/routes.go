package constants

// Static route constants
const (
	WebhookRevenueCat     = "/webhooks/revenuecat"
	SubscriptionSyncRoute = "/subscription/sync"
	MetricsRoute          = "/metrics"
	MonitorRoute          = "/monitor"
	HealthRoute           = "/health"
)
