package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the dedup record for provider notifications, keyed by the
// provider's own event id. A given id flips processed from false to true at most once.
type WebhookEvent struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type;not null"`
	OrderID     *uuid.UUID `gorm:"column:order_id;type:uuid"`
	Processed   bool       `gorm:"column:processed;not null;default:false"`
	LastError   *string    `gorm:"column:last_error"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}
