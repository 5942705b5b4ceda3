package models

import "time"

// DiscountCode feeds the external discount validation applied at checkout.
// This service reads it; the back office owns its lifecycle.
type DiscountCode struct {
	Code             string     `gorm:"column:code;primaryKey"`
	PercentOff       int        `gorm:"column:percent_off;not null"`
	MinSubtotalCents int        `gorm:"column:min_subtotal_cents;not null;default:0"`
	Active           bool       `gorm:"column:active;not null;default:true"`
	ExpiresAt        *time.Time `gorm:"column:expires_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}
