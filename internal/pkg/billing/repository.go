package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thrivewithai/thrivewithai/app/models"
)

// EventLog is the audit trail of authenticated webhook deliveries. Rows are
// unique per (provider, provider_event_id).
type EventLog interface {
	// Record inserts event unless it is already logged and returns the
	// stored row either way. created is false for a redelivery.
	Record(ctx context.Context, event *models.BillingWebhookEvent) (created bool, stored *models.BillingWebhookEvent, err error)
	Finish(ctx context.Context, id uint, outcome, processingError string) error
	List(ctx context.Context, offset, limit int) ([]models.BillingWebhookEvent, int64, error)
}

type eventLog struct {
	db *gorm.DB
}

func NewEventLog(db *gorm.DB) EventLog {
	return &eventLog{db: db}
}

var eventKey = []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}}

func (l *eventLog) Record(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := l.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{Columns: eventKey, DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, nil, res.Error
	}

	stored := new(models.BillingWebhookEvent)
	err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		Take(stored).Error
	if err != nil {
		return false, nil, err
	}
	return res.RowsAffected > 0, stored, nil
}

func (l *eventLog) Finish(ctx context.Context, id uint, outcome, processingError string) error {
	return l.db.WithContext(ctx).
		Model(&models.BillingWebhookEvent{ID: id}).
		Select("processed_at", "outcome", "processing_error").
		Updates(&models.BillingWebhookEvent{
			ProcessedAt:     ptrTime(time.Now()),
			Outcome:         outcome,
			ProcessingError: processingError,
		}).Error
}

// List pages newest first and leaves out the raw payload.
func (l *eventLog) List(ctx context.Context, offset, limit int) ([]models.BillingWebhookEvent, int64, error) {
	db := l.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.BillingWebhookEvent{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []models.BillingWebhookEvent
	if err := db.Omit("payload_json").Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func ptrTime(t time.Time) *time.Time { return &t }
