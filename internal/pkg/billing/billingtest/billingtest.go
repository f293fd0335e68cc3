// Package billingtest provides in-memory billing dependencies for tests.
package billingtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

// Store is a billing.Store kept in a map keyed by user id.
type Store struct {
	mu     sync.Mutex
	nextID uint
	subs   map[uint]*models.Subscriber

	// UpsertErr, when set, is returned by every Upsert call.
	UpsertErr error
	// LookupErr, when set, is returned by GetByProviderCustomerID.
	LookupErr error
	Upserts   int
}

var _ billing.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{subs: map[uint]*models.Subscriber{}}
}

// Seed inserts a subscriber with the given state and optional customer id.
func (s *Store) Seed(userID uint, customerID string, state entitlements.State) *models.Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &models.Subscriber{ID: s.nextID, UserID: userID, Tier: state.Tier, Status: state.Status, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if customerID != "" {
		id := customerID
		sub.ProviderCustomerID = &id
	}
	s.subs[userID] = sub
	return clone(sub)
}

func (s *Store) Get(_ context.Context, userID uint) (*models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, billing.ErrNotFound
	}
	return clone(sub), nil
}

func (s *Store) GetByProviderCustomerID(_ context.Context, providerCustomerID string) (*models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	id := strings.TrimSpace(providerCustomerID)
	if id == "" {
		return nil, billing.ErrNotFound
	}
	for _, sub := range s.subs {
		if sub.CustomerID() == id {
			return clone(sub), nil
		}
	}
	return nil, billing.ErrNotFound
}

func (s *Store) Create(ctx context.Context, userID uint) (*models.Subscriber, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	s.mu.Lock()
	if _, ok := s.subs[userID]; !ok {
		s.mu.Unlock()
		s.Seed(userID, "", entitlements.Free())
	} else {
		s.mu.Unlock()
	}
	return s.Get(ctx, userID)
}

func (s *Store) Upsert(ctx context.Context, userID uint, state entitlements.State) (*models.Subscriber, error) {
	if !entitlements.Consistent(state) {
		return nil, billing.ErrInconsistentState
	}
	s.mu.Lock()
	if s.UpsertErr != nil {
		s.mu.Unlock()
		return nil, s.UpsertErr
	}
	s.Upserts++
	sub, ok := s.subs[userID]
	s.mu.Unlock()
	if !ok {
		s.Seed(userID, "", state)
		return s.Get(ctx, userID)
	}

	s.mu.Lock()
	sub.Tier = state.Tier
	sub.Status = state.Status
	sub.UpdatedAt = time.Now()
	s.mu.Unlock()
	return s.Get(ctx, userID)
}

func (s *Store) AssignProviderCustomerID(ctx context.Context, userID uint, providerCustomerID string) (*models.Subscriber, error) {
	s.mu.Lock()
	sub, ok := s.subs[userID]
	if !ok {
		s.mu.Unlock()
		return nil, billing.ErrNotFound
	}
	if sub.ProviderCustomerID == nil {
		id := providerCustomerID
		sub.ProviderCustomerID = &id
	}
	s.mu.Unlock()

	out, _ := s.Get(ctx, userID)
	if out.CustomerID() != providerCustomerID {
		return out, billing.ErrProviderCustomerIDImmutable
	}
	return out, nil
}

func (s *Store) List(_ context.Context, offset, limit int) ([]models.Subscriber, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		all = append(all, *clone(sub))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.Subscriber{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func clone(sub *models.Subscriber) *models.Subscriber {
	c := *sub
	if sub.ProviderCustomerID != nil {
		id := *sub.ProviderCustomerID
		c.ProviderCustomerID = &id
	}
	return &c
}

// EventLog is a billing.EventLog kept in memory.
type EventLog struct {
	mu     sync.Mutex
	events []*models.BillingWebhookEvent

	// CreateErr, when set, is returned by Record.
	CreateErr error
}

var _ billing.EventLog = (*EventLog)(nil)

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Record(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.CreateErr != nil {
		return false, nil, l.CreateErr
	}
	for _, e := range l.events {
		if e.Provider == event.Provider && e.ProviderEventID == event.ProviderEventID {
			c := *e
			return false, &c, nil
		}
	}
	event.ID = uint(len(l.events) + 1)
	event.CreatedAt = time.Now()
	stored := *event
	l.events = append(l.events, &stored)
	c := stored
	return true, &c, nil
}

func (l *EventLog) Finish(_ context.Context, id uint, outcome, processingError string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.Outcome = outcome
			e.ProcessingError = processingError
			return nil
		}
	}
	return errors.New("webhook event not found")
}

func (l *EventLog) List(_ context.Context, offset, limit int) ([]models.BillingWebhookEvent, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.BillingWebhookEvent, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0; i-- {
		out = append(out, *l.events[i])
	}
	total := int64(len(out))
	if offset >= len(out) {
		return []models.BillingWebhookEvent{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

// Events returns a copy of every recorded event, oldest first.
func (l *EventLog) Events() []models.BillingWebhookEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.BillingWebhookEvent, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, *e)
	}
	return out
}

// Provider records calls and returns configured results.
type Provider struct {
	mu sync.Mutex

	CreateErr error
	FetchErr  error
	PushErr   error
	Info      *billing.CustomerInfo

	Created []string
	Pushed  map[string]entitlements.State
}

var _ billing.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{Pushed: map[string]entitlements.State{}}
}

func (p *Provider) CreateCustomer(_ context.Context, appUserID, _ string) (*billing.ProviderCustomer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.Created = append(p.Created, appUserID)
	return &billing.ProviderCustomer{ID: appUserID}, nil
}

func (p *Provider) FetchCustomerInfo(_ context.Context, _ string) (*billing.CustomerInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Info, p.FetchErr
}

func (p *Provider) PushLocalState(_ context.Context, appUserID string, state entitlements.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PushErr != nil {
		return p.PushErr
	}
	p.Pushed[appUserID] = state
	return nil
}
