package stripewebhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/db/models"
)

// EventRepository persists the webhook dedup ledger. The table's primary key
// is the provider's event id, so claiming is a plain insert and the database
// enforces at-most-once.
type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	Claim(ctx context.Context, eventID, eventType string) (*models.WebhookEvent, bool, error)
	MarkProcessed(ctx context.Context, eventID string, orderID *uuid.UUID) error
	RecordFailure(ctx context.Context, eventID string, orderID *uuid.UUID, reason string) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository builds the dedup ledger repository.
func NewEventRepository(conn *gorm.DB) EventRepository {
	return &eventRepository{db: conn}
}

func (r *eventRepository) WithTx(tx *gorm.DB) EventRepository {
	if tx == nil {
		return r
	}
	return &eventRepository{db: tx}
}

// Claim inserts the event row. The bool reports whether this delivery
// inserted it; on a duplicate the stored row is returned instead.
func (r *eventRepository) Claim(ctx context.Context, eventID, eventType string) (*models.WebhookEvent, bool, error) {
	row := &models.WebhookEvent{ID: eventID, EventType: eventType}
	err := r.db.WithContext(ctx).Create(row).Error
	if err == nil {
		return row, true, nil
	}
	if !db.IsUniqueViolation(err, "") && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	var existing models.WebhookEvent
	if err := r.db.WithContext(ctx).First(&existing, "id = ?", eventID).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// MarkProcessed flips the row to processed exactly once.
func (r *eventRepository) MarkProcessed(ctx context.Context, eventID string, orderID *uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"processed":    true,
			"processed_at": now,
			"order_id":     orderID,
			"last_error":   nil,
		}).
		Error
}

// RecordFailure stores why processing failed while leaving the row
// unprocessed, so a redelivery gets another attempt. A row that a
// concurrent delivery already marked processed is left alone.
func (r *eventRepository) RecordFailure(ctx context.Context, eventID string, orderID *uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ? AND processed = ?", eventID, false).
		Updates(map[string]any{
			"order_id":   orderID,
			"last_error": reason,
		}).
		Error
}
