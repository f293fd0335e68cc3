package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
	appsession "github.com/thrivewithai/thrivewithai/internal/pkg/session"
)

const stateTTL = 15 * time.Minute

// Enabled reports whether Google sign-in is configured.
func Enabled() bool {
	return env.GetEnv("GOOGLE_KEY", "") != "" && env.GetEnv("GOOGLE_SECRET", "") != ""
}

// CallbackURL is where Google redirects after consent.
func CallbackURL(provider string) string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base + "/auth/" + provider + "/callback"
}

// Setup registers the Google provider and keeps the OAuth handshake state
// in its own Redis database. Calling it again re-registers the provider.
func Setup() {
	goth.UseProviders(google.New(
		env.GetEnv("GOOGLE_KEY", ""),
		env.GetEnv("GOOGLE_SECRET", ""),
		CallbackURL("google"),
		"email", "profile",
	))

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        appsession.NewRedisStorage(appsession.OAuthStateDB),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		CookieSecure:   env.IsProduction(),
		Expiration:     stateTTL,
	})
}
