package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrivewithai/thrivewithai/app/controllers"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing/billingtest"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
	"github.com/thrivewithai/thrivewithai/internal/pkg/session"
)

func newTestApp(t *testing.T) (*fiber.App, *billingtest.Store) {
	t.Helper()
	session.SetSessionStore(fibersession.New())
	t.Cleanup(func() { session.SetSessionStore(nil) })

	store := billingtest.NewStore()
	deps := controllers.Dependencies{
		Repos:       &repository.Repositories{},
		Billing:     billing.NewService(store, billingtest.NewEventLog(), billingtest.NewProvider()),
		AdminPolicy: security.NewAdminPolicy("ops@example.com"),
	}
	app := fiber.New()
	InstallRouter(app, deps)
	return app, store
}

func TestInstallRouter_Routes(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"ping", http.MethodGet, "/api/v1/ping", fiber.StatusOK},
		{"api root", http.MethodGet, "/api/", fiber.StatusOK},
		{"account needs session", http.MethodGet, "/api/v1/account", fiber.StatusUnauthorized},
		{"sync needs session", http.MethodPost, "/api/v1/subscription/sync", fiber.StatusUnauthorized},
		{"admin needs session", http.MethodGet, "/api/v1/admin/stats", fiber.StatusUnauthorized},
		{"metrics", http.MethodGet, "/metrics", fiber.StatusOK},
		{"monitor disabled without password", http.MethodGet, "/monitor", fiber.StatusNotFound},
		{"oauth disabled without keys", http.MethodGet, "/auth/google", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestInstallRouter_Webhook(t *testing.T) {
	app, store := newTestApp(t)
	store.Seed(7, "twai_7", entitlements.Free())

	body := `{"api_version":"1.0","event":{"id":"evt-7","type":"INITIAL_PURCHASE","app_user_id":"twai_7"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	sub, err := store.Get(req.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierPremium, sub.Tier)
	assert.Equal(t, entitlements.StatusActive, sub.Status)
}

func TestInstallRouter_RateLimit(t *testing.T) {
	t.Setenv("API_RATE_LIMIT", "2")
	app, _ := newTestApp(t)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestCorsConfig(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	cfg := corsConfig()
	assert.Equal(t, "*", cfg.AllowOrigins)
	assert.False(t, cfg.AllowCredentials)

	t.Setenv("CORS_ALLOW_ORIGINS", "https://app.thrivewithai.com")
	cfg = corsConfig()
	assert.Equal(t, "https://app.thrivewithai.com", cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
}

func TestClientKey(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(clientKey(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", string(body))
}

func TestHealth_Unconfigured(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unconfigured", body["database"])
	assert.Equal(t, false, body["ok"])
}
