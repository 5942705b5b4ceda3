package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/pkg/enums"
	"github.com/blendery/blendery-backend/pkg/types"
)

// Order is the durable result of a successful checkout. Everything except
// status and the payment fields is immutable once created.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	GuestSessionID      *string           `gorm:"column:guest_session_id"`
	Status              enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency            enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents       int               `gorm:"column:subtotal_cents;not null"`
	ShippingCents       int               `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents            int               `gorm:"column:tax_cents;not null;default:0"`
	DiscountCents       int               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents          int               `gorm:"column:total_cents;not null"`
	DiscountCode        *string           `gorm:"column:discount_code"`
	ShippingAddress     *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentIntentID     *string           `gorm:"column:payment_intent_id"`
	PaymentClientSecret *string           `gorm:"column:payment_client_secret"`
	Items               []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusLogs          []OrderStatusLog  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
