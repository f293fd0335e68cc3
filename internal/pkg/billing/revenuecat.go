package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

var ErrProviderUnavailable = errors.New("billing provider unavailable")

const maxProviderResponseBytes = 1 << 20

// Provider is the subset of the RevenueCat REST API the service depends on.
type Provider interface {
	CreateCustomer(ctx context.Context, appUserID, email string) (*ProviderCustomer, error)
	FetchCustomerInfo(ctx context.Context, appUserID string) (*CustomerInfo, error)
	PushLocalState(ctx context.Context, appUserID string, state entitlements.State) error
}

type RevenueCatClient struct {
	APIKey     string
	APIBaseURL string
	HTTPClient *http.Client

	now func() time.Time
}

type revenueCatSubscriberResponse struct {
	Subscriber struct {
		OriginalAppUserID string     `json:"original_app_user_id"`
		FirstSeen         *time.Time `json:"first_seen"`
		Entitlements      map[string]struct {
			ExpiresDate       *time.Time `json:"expires_date"`
			ProductIdentifier string     `json:"product_identifier"`
		} `json:"entitlements"`
	} `json:"subscriber"`
}

type revenueCatAttribute struct {
	Value string `json:"value"`
}

type revenueCatAttributesRequest struct {
	Attributes map[string]revenueCatAttribute `json:"attributes"`
}

func NewRevenueCatClient(cfg Config) *RevenueCatClient {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = defaultRevenueCatAPIBaseURL
	}
	return &RevenueCatClient{
		APIKey:     cfg.APIKey,
		APIBaseURL: base,
		HTTPClient: &http.Client{
			Timeout: normalizeTimeout(cfg.Timeout),
		},
		now: time.Now,
	}
}

// CreateCustomer registers appUserID with RevenueCat. The subscribers
// endpoint creates the customer on first read, so the call is idempotent.
func (c *RevenueCatClient) CreateCustomer(ctx context.Context, appUserID, email string) (*ProviderCustomer, error) {
	id := strings.TrimSpace(appUserID)
	if id == "" {
		return nil, errors.New("app user id is required")
	}

	status, body, err := c.do(ctx, http.MethodGet, subscriberPath(id), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: create customer status=%d body=%s", ErrProviderUnavailable, status, string(body))
	}

	var out revenueCatSubscriberResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode subscriber: %v", ErrProviderUnavailable, err)
	}

	if email = strings.TrimSpace(email); email != "" {
		if err := c.postAttributes(ctx, id, map[string]revenueCatAttribute{"$email": {Value: email}}); err != nil {
			return nil, err
		}
	}

	return &ProviderCustomer{ID: id, FirstSeen: out.Subscriber.FirstSeen}, nil
}

// FetchCustomerInfo returns nil without error when the provider does not know the customer.
func (c *RevenueCatClient) FetchCustomerInfo(ctx context.Context, appUserID string) (*CustomerInfo, error) {
	id := strings.TrimSpace(appUserID)
	if id == "" {
		return nil, errors.New("app user id is required")
	}

	status, body, err := c.do(ctx, http.MethodGet, subscriberPath(id), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: fetch customer status=%d body=%s", ErrProviderUnavailable, status, string(body))
	}

	var out revenueCatSubscriberResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode subscriber: %v", ErrProviderUnavailable, err)
	}

	now := c.now()
	info := &CustomerInfo{
		AppUserID:    id,
		FirstSeen:    out.Subscriber.FirstSeen,
		Entitlements: make(map[string]EntitlementInfo, len(out.Subscriber.Entitlements)),
	}
	for name, e := range out.Subscriber.Entitlements {
		info.Entitlements[name] = EntitlementInfo{
			ProductIdentifier: e.ProductIdentifier,
			ExpiresDate:       e.ExpiresDate,
			// Lifetime entitlements have no expiry.
			IsActive: e.ExpiresDate == nil || e.ExpiresDate.After(now),
		}
	}
	return info, nil
}

// PushLocalState mirrors the local tier and status onto the customer's attributes.
func (c *RevenueCatClient) PushLocalState(ctx context.Context, appUserID string, state entitlements.State) error {
	id := strings.TrimSpace(appUserID)
	if id == "" {
		return errors.New("app user id is required")
	}
	return c.postAttributes(ctx, id, map[string]revenueCatAttribute{
		"twai_tier":   {Value: string(state.Tier)},
		"twai_status": {Value: string(state.Status)},
	})
}

func (c *RevenueCatClient) postAttributes(ctx context.Context, appUserID string, attrs map[string]revenueCatAttribute) error {
	status, body, err := c.do(ctx, http.MethodPost, subscriberPath(appUserID)+"/attributes", revenueCatAttributesRequest{Attributes: attrs})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: update attributes status=%d body=%s", ErrProviderUnavailable, status, string(body))
	}
	return nil
}

func (c *RevenueCatClient) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return 0, nil, fmt.Errorf("%w: REVENUECAT_API_KEY is not configured", ErrProviderUnavailable)
	}

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

func subscriberPath(appUserID string) string {
	return "/subscribers/" + url.PathEscape(appUserID)
}
