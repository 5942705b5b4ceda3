package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/pkg/db/models"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

// Validator resolves discount codes at checkout time.
type Validator interface {
	WithTx(tx *gorm.DB) Validator
	Validate(ctx context.Context, code string, subtotalCents int) (*models.DiscountCode, error)
}

type validator struct {
	db *gorm.DB
}

// NewValidator builds a validator backed by the provided GORM DB.
func NewValidator(db *gorm.DB) (Validator, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &validator{db: db}, nil
}

func (v *validator) WithTx(tx *gorm.DB) Validator {
	if tx == nil {
		return v
	}
	return &validator{db: tx}
}

// Validate returns the discount row when the code applies to the given
// subtotal. Any rejection is a CodeValidation error so checkout surfaces it
// to the buyer rather than failing the request outright.
func (v *validator) Validate(ctx context.Context, code string, subtotalCents int) (*models.DiscountCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}

	var row models.DiscountCode
	if err := v.db.WithContext(ctx).First(&row, "code = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown discount code")
		}
		return nil, err
	}

	if !row.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is no longer active")
	}
	if row.ExpiresAt != nil && row.ExpiresAt.Before(time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code has expired")
	}
	if subtotalCents < row.MinSubtotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order subtotal below the %d cent minimum for this code", row.MinSubtotalCents))
	}

	return &row, nil
}
