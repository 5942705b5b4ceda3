package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds mutable line items for exactly one owner: an authenticated
// user or a guest session. It is cleared after an order is committed from it.
type Cart struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	GuestSessionID *string    `gorm:"column:guest_session_id;uniqueIndex"`
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
