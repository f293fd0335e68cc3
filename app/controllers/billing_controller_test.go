package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing/billingtest"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/middleware"
)

const testWebhookSecret = "whsec_test"

type billingFixture struct {
	app    *fiber.App
	store  *billingtest.Store
	events *billingtest.EventLog
	jobs   *fakeJobs
}

func newBillingFixture(t *testing.T, cfg billing.Config, userID uint) *billingFixture {
	t.Helper()
	store := billingtest.NewStore()
	events := billingtest.NewEventLog()
	jobs := &fakeJobs{}
	svc := billing.NewService(store, events, billingtest.NewProvider())
	bc := NewBillingController(svc, cfg, jobs)

	app := fiber.New()
	app.Post("/webhooks/revenuecat", bc.HandleRevenueCatWebhook)
	uc := loggedIn(userID, "user@example.com")
	if userID == 0 {
		uc.IsLoggedIn = false
	}
	app.Post("/api/v1/subscription/sync", withUser(uc), middleware.RequireAPISessionAuth, bc.HandleSubscriptionSync)

	return &billingFixture{app: app, store: store, events: events, jobs: jobs}
}

func sign(body string) string {
	return billing.SignPayload([]byte(body), testWebhookSecret)
}

func webhookBody(id, eventType, appUserID string) string {
	return `{"api_version":"1.0","event":{"id":"` + id + `","type":"` + eventType + `","app_user_id":"` + appUserID + `"}}`
}

func (f *billingFixture) postWebhook(t *testing.T, body string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode, decodeBody(t, resp)
}

func (f *billingFixture) postSync(t *testing.T, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/sync", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}

func prodConfig() billing.Config {
	return billing.Config{WebhookSecret: testWebhookSecret, Production: true}
}

func TestWebhook_GrantThenRevoke(t *testing.T) {
	f := newBillingFixture(t, prodConfig(), 1)
	f.store.Seed(7, "twai_abc", entitlements.Free())

	body := webhookBody("evt-1", "INITIAL_PURCHASE", "twai_abc")
	status, out := f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, models.WebhookOutcomeApplied, out["outcome"])

	sub, err := f.store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, entitlements.Grant(), sub.State())

	body = webhookBody("evt-2", "EXPIRATION", "twai_abc")
	status, _ = f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
	assert.Equal(t, fiber.StatusOK, status)

	sub, err = f.store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, entitlements.Revoke(), sub.State())
}

func TestWebhook_SignatureRules(t *testing.T) {
	body := webhookBody("evt-sig", "RENEWAL", "twai_sig")

	tests := []struct {
		name    string
		cfg     billing.Config
		headers map[string]string
		want    int
	}{
		{name: "valid primary header", cfg: prodConfig(), headers: map[string]string{"X-RevenueCat-Signature": sign(body)}, want: fiber.StatusOK},
		{name: "fallback header with prefix", cfg: prodConfig(), headers: map[string]string{"X-Signature": "sha256=" + sign(body)}, want: fiber.StatusOK},
		{name: "wrong signature", cfg: prodConfig(), headers: map[string]string{"X-RevenueCat-Signature": sign(body + " ")}, want: fiber.StatusUnauthorized},
		{name: "missing signature", cfg: prodConfig(), want: fiber.StatusUnauthorized},
		{name: "secret set in dev still enforced", cfg: billing.Config{WebhookSecret: testWebhookSecret}, want: fiber.StatusUnauthorized},
		{name: "production without secret", cfg: billing.Config{Production: true}, headers: map[string]string{"X-RevenueCat-Signature": sign(body)}, want: fiber.StatusUnauthorized},
		{name: "dev without secret skips check", cfg: billing.Config{}, want: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillingFixture(t, tt.cfg, 1)
			f.store.Seed(3, "twai_sig", entitlements.Free())

			status, _ := f.postWebhook(t, body, tt.headers)
			assert.Equal(t, tt.want, status)

			sub, err := f.store.Get(context.Background(), 3)
			require.NoError(t, err)
			if tt.want == fiber.StatusOK {
				assert.Equal(t, entitlements.Grant(), sub.State())
				events := f.events.Events()
				require.Len(t, events, 1)
				assert.Equal(t, tt.cfg.RequireSignature(), events[0].SignatureValid)
			} else {
				assert.Equal(t, entitlements.Free(), sub.State())
				assert.Empty(t, f.events.Events())
			}
		})
	}
}

func TestWebhook_InvalidPayloads(t *testing.T) {
	bodies := map[string]string{
		"not json":              `{"event":`,
		"empty type":            `{"event":{"id":"e","type":"","app_user_id":"twai_x"}}`,
		"grant without user":    `{"event":{"id":"e","type":"INITIAL_PURCHASE","app_user_id":""}}`,
		"revoke without user":   `{"event":{"id":"e","type":"CANCELLATION"}}`,
		"missing event wrapper": `{"type":"RENEWAL","app_user_id":"twai_x"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			f := newBillingFixture(t, prodConfig(), 1)
			status, out := f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "invalid_payload", out["error"])
			assert.Zero(t, f.store.Upserts)
		})
	}
}

func TestWebhook_IgnoredWithoutUser(t *testing.T) {
	f := newBillingFixture(t, prodConfig(), 1)
	body := `{"event":{"id":"evt-test","type":"TEST"}}`

	status, out := f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeIgnored, out["outcome"])
	assert.Zero(t, f.store.Upserts)
}

func TestWebhook_UnmappedCustomer(t *testing.T) {
	f := newBillingFixture(t, prodConfig(), 1)
	body := webhookBody("evt-unmapped", "RENEWAL", "twai_nobody")

	status, out := f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeUnmapped, out["outcome"])
	assert.Zero(t, f.store.Upserts)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookOutcomeUnmapped, events[0].Outcome)
	assert.Equal(t, "twai_nobody", events[0].AppUserID)
}

func TestWebhook_LookupFailureIs500(t *testing.T) {
	f := newBillingFixture(t, prodConfig(), 1)
	f.store.LookupErr = assert.AnError
	body := webhookBody("evt-lookup", "RENEWAL", "twai_x")

	status, out := f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "subscription_sync_failed", out["error"])
}

func TestWebhook_StoreFailureRetriedThenDuplicate(t *testing.T) {
	f := newBillingFixture(t, prodConfig(), 1)
	f.store.Seed(9, "twai_retry", entitlements.Free())
	f.store.UpsertErr = assert.AnError

	body := webhookBody("evt-retry", "INITIAL_PURCHASE", "twai_retry")
	headers := map[string]string{"X-RevenueCat-Signature": sign(body)}

	status, out := f.postWebhook(t, body, headers)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "subscription_sync_failed", out["error"])

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookOutcomeFailed, events[0].Outcome)
	assert.NotEmpty(t, events[0].ProcessingError)

	// The provider redelivers after a failure; this time the store works.
	f.store.UpsertErr = nil
	status, out = f.postWebhook(t, body, headers)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeApplied, out["outcome"])

	sub, err := f.store.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, entitlements.Grant(), sub.State())

	// A redelivery of a processed event short-circuits.
	status, out = f.postWebhook(t, body, headers)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["duplicate"])
	assert.Len(t, f.events.Events(), 1)
}

func TestWebhook_EventLogFailureDoesNotBlock(t *testing.T) {
	f := newBillingFixture(t, prodConfig(), 1)
	f.store.Seed(4, "twai_log", entitlements.Free())
	f.events.CreateErr = assert.AnError

	body := webhookBody("evt-log", "RENEWAL", "twai_log")
	status, out := f.postWebhook(t, body, map[string]string{"X-RevenueCat-Signature": sign(body)})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.WebhookOutcomeApplied, out["outcome"])
}

func TestSubscriptionSync(t *testing.T) {
	t.Run("requires session", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 0)
		status, out := f.postSync(t, `{"customerInfo":{"entitlements":{}}}`)
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "unauthorized", out["error"])
	})

	t.Run("active premium", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 5)
		f.store.Seed(5, "twai_5", entitlements.Free())

		status, out := f.postSync(t, `{"customerInfo":{"entitlements":{"premium":{"isActive":true}}}}`)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, out["success"])
		assert.Equal(t, map[string]interface{}{"status": "active", "tier": "premium"}, out["subscription"])
		assert.Equal(t, []uint{5}, f.jobs.pushes)
	})

	t.Run("inactive maps to free", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 5)
		f.store.Seed(5, "twai_5", entitlements.Grant())

		status, out := f.postSync(t, `{"customerInfo":{"entitlements":{"premium":{"isActive":false}}}}`)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, map[string]interface{}{"status": "free", "tier": "free"}, out["subscription"])
	})

	t.Run("no premium entitlement maps to free", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 5)
		f.store.Seed(5, "", entitlements.Grant())

		status, out := f.postSync(t, `{"customerInfo":{"entitlements":{}}}`)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, map[string]interface{}{"status": "free", "tier": "free"}, out["subscription"])
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 6)

		status, out := f.postSync(t, `{"customerInfo":{"entitlements":{"premium":{"isActive":true}}}}`)
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Equal(t, "not_found", out["error"])
		assert.Zero(t, f.store.Upserts)
		assert.Empty(t, f.jobs.pushes)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 5)
		f.store.Seed(5, "", entitlements.Free())

		for _, body := range []string{`{"customerInfo":`, `{}`, `{"customerInfo":null}`} {
			status, _ := f.postSync(t, body)
			assert.Equal(t, fiber.StatusBadRequest, status, body)
		}
		assert.Zero(t, f.store.Upserts)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newBillingFixture(t, prodConfig(), 5)
		f.store.Seed(5, "", entitlements.Free())
		f.store.UpsertErr = assert.AnError

		status, out := f.postSync(t, `{"customerInfo":{"entitlements":{"premium":{"isActive":true}}}}`)
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, "subscription_sync_failed", out["error"])
	})
}
