package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/pkg/enums"
)

// OrderStatusLog is the append-only audit trail of order status transitions.
type OrderStatusLog struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;not null"`
	Note       *string            `gorm:"column:note"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
