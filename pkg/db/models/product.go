package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/pkg/enums"
)

// Product represents a catalog listing: a loose-leaf tea, a coffee, a blend
// base, or an add-on. Stock is only mutated inside a transaction.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description *string               `gorm:"column:description"`
	Category    enums.ProductCategory `gorm:"column:category;not null"`
	PriceCents  int                   `gorm:"column:price_cents;not null"`
	Stock       int                   `gorm:"column:stock;not null;default:0"`
	Active      bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
