package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/internal/pkg/entitlements"
)

var (
	ErrNotFound                    = errors.New("subscriber not found")
	ErrInconsistentState           = errors.New("tier and status are not a consistent entitlement state")
	ErrProviderCustomerIDImmutable = errors.New("provider customer id already assigned")
)

// Store persists Subscriber records. Upsert is the only path that changes tier and status.
type Store interface {
	Get(ctx context.Context, userID uint) (*models.Subscriber, error)
	GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*models.Subscriber, error)
	Create(ctx context.Context, userID uint) (*models.Subscriber, error)
	Upsert(ctx context.Context, userID uint, state entitlements.State) (*models.Subscriber, error)
	AssignProviderCustomerID(ctx context.Context, userID uint, providerCustomerID string) (*models.Subscriber, error)
	List(ctx context.Context, offset, limit int) ([]models.Subscriber, int64, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a subscriber store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, userID uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &sub, nil
}

func (s *gormStore) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*models.Subscriber, error) {
	id := strings.TrimSpace(providerCustomerID)
	if id == "" {
		return nil, ErrNotFound
	}
	var sub models.Subscriber
	err := s.db.WithContext(ctx).Where("provider_customer_id = ?", id).First(&sub).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &sub, nil
}

func (s *gormStore) Create(ctx context.Context, userID uint) (*models.Subscriber, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	free := entitlements.Free()
	sub := &models.Subscriber{UserID: userID, Tier: free.Tier, Status: free.Status}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(sub).Error; err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	return s.Get(ctx, userID)
}

// Upsert writes tier and status in a single INSERT ... ON DUPLICATE KEY UPDATE
// statement, so concurrent writers for one user resolve to the last write.
func (s *gormStore) Upsert(ctx context.Context, userID uint, state entitlements.State) (*models.Subscriber, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	if !entitlements.Consistent(state) {
		return nil, fmt.Errorf("%w: tier=%q status=%q", ErrInconsistentState, state.Tier, state.Status)
	}

	sub := &models.Subscriber{UserID: userID, Tier: state.Tier, Status: state.Status}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "status", "updated_at"}),
	}).Create(sub).Error; err != nil {
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *gormStore) AssignProviderCustomerID(ctx context.Context, userID uint, providerCustomerID string) (*models.Subscriber, error) {
	id := strings.TrimSpace(providerCustomerID)
	if userID == 0 || id == "" {
		return nil, errors.New("user_id and provider_customer_id are required")
	}

	// UpdateColumn keeps updated_at pointing at the last reconciliation.
	if err := s.db.WithContext(ctx).Model(&models.Subscriber{}).
		Where("user_id = ? AND provider_customer_id IS NULL", userID).
		UpdateColumn("provider_customer_id", id).Error; err != nil {
		return nil, fmt.Errorf("assign provider customer id: %w", err)
	}

	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerID() != id {
		return sub, ErrProviderCustomerIDImmutable
	}
	return sub, nil
}

func (s *gormStore) List(ctx context.Context, offset, limit int) ([]models.Subscriber, int64, error) {
	var (
		subs  []models.Subscriber
		total int64
	)
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Subscriber{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&subs).Error
	return subs, total, err
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
