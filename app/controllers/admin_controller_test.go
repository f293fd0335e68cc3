package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing/billingtest"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/middleware"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
)

type fakeQueue struct{}

func (fakeQueue) GetJobStats(context.Context) (map[jobqueue.JobStatus]int64, error) {
	return map[jobqueue.JobStatus]int64{jobqueue.JobStatusCompleted: 4, jobqueue.JobStatusFailed: 1}, nil
}
func (fakeQueue) GetQueueSize(context.Context) (int64, error)      { return 2, nil }
func (fakeQueue) GetProcessingSize(context.Context) (int64, error) { return 1, nil }

func newAdminApp(t *testing.T, email string) (*fiber.App, *billingtest.Store, *billingtest.EventLog, *fakeFeedback) {
	t.Helper()
	store := billingtest.NewStore()
	events := billingtest.NewEventLog()
	feedback := newFakeFeedback()
	users := newFakeUsers()
	svc := billing.NewService(store, events, billingtest.NewProvider())
	repos := &repository.Repositories{User: users, Feedback: feedback}
	ac := NewAdminController(nil, repos, svc, fakeQueue{})

	policy := security.NewAdminPolicy("ops@example.com")
	app := fiber.New()
	admin := app.Group("/admin", withUser(loggedIn(1, email)), middleware.RequireAdmin(policy))
	admin.Get("/stats", ac.HandleStats)
	admin.Get("/users", ac.HandleUsers)
	admin.Get("/subscribers", ac.HandleSubscribers)
	admin.Get("/webhook-events", ac.HandleWebhookEvents)
	admin.Delete("/feedback/:id", ac.HandleDeleteFeedback)
	admin.Get("/queue", ac.HandleQueue)
	return app, store, events, feedback
}

func TestAdmin_RequiresPolicy(t *testing.T) {
	app, _, _, _ := newAdminApp(t, "user@example.com")
	for _, path := range []string{"/admin/subscribers", "/admin/webhook-events", "/admin/queue", "/admin/users"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, path)
	}
}

func TestAdmin_Subscribers(t *testing.T) {
	app, store, _, _ := newAdminApp(t, "ops@example.com")
	store.Seed(1, "twai_1", entitlements.Grant())
	store.Seed(2, "", entitlements.Free())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/subscribers?page=1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decodeBody(t, resp)
	assert.Equal(t, float64(2), out["total"])
	assert.Equal(t, float64(1), out["pages"])
	assert.Len(t, out["subscribers"], 2)
}

func TestAdmin_WebhookEvents(t *testing.T) {
	app, _, events, _ := newAdminApp(t, "ops@example.com")
	_, _, err := events.Record(context.Background(), &models.BillingWebhookEvent{
		Provider: models.BillingProviderRevenueCat, ProviderEventID: "evt-1", EventType: "RENEWAL",
	})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/webhook-events", nil))
	require.NoError(t, err)
	out := decodeBody(t, resp)
	assert.Equal(t, float64(1), out["total"])
	assert.Len(t, out["events"], 1)
}

func TestAdmin_DeleteFeedback(t *testing.T) {
	app, _, _, feedback := newAdminApp(t, "ops@example.com")
	require.NoError(t, feedback.Create(&models.Feedback{TargetType: "job", TargetSlug: "x", Rating: 2}))

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/admin/feedback/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, feedback.items)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/admin/feedback/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/admin/feedback/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_QueueAndStats(t *testing.T) {
	app, _, _, _ := newAdminApp(t, "ops@example.com")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/queue", nil))
	require.NoError(t, err)
	out := decodeBody(t, resp)
	assert.Equal(t, float64(2), out["pending"])
	assert.Equal(t, float64(1), out["processing"])
	assert.Equal(t, map[string]interface{}{"completed": float64(4), "failed": float64(1)}, out["stats"])

	// No database handle configured.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
