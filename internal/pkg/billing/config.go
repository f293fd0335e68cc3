package billing

import (
	"strings"
	"time"

	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
)

const (
	defaultRevenueCatAPIBaseURL = "https://api.revenuecat.com/v1"
	defaultProviderTimeout      = 8 * time.Second
	maxProviderTimeout          = 10 * time.Second
)

// Config is read once at startup and passed to the client and webhook controller.
type Config struct {
	APIBaseURL    string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
	Production    bool
}

func ConfigFromEnv() Config {
	timeout := time.Duration(env.GetEnvInt("BILLING_PROVIDER_TIMEOUT_SECONDS", 0)) * time.Second

	return Config{
		APIBaseURL:    strings.TrimSpace(env.GetEnv("REVENUECAT_API_BASE_URL", defaultRevenueCatAPIBaseURL)),
		APIKey:        strings.TrimSpace(env.GetEnv("REVENUECAT_API_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("REVENUECAT_WEBHOOK_SECRET", "")),
		Timeout:       normalizeTimeout(timeout),
		Production:    env.IsProduction(),
	}
}

// RequireSignature reports whether webhook requests must carry a valid signature.
// Unsigned webhooks are only tolerated outside production with no secret configured.
func (c Config) RequireSignature() bool {
	return c.Production || c.WebhookSecret != ""
}

func normalizeTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return defaultProviderTimeout
	case d > maxProviderTimeout:
		return maxProviderTimeout
	default:
		return d
	}
}
