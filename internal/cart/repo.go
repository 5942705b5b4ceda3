package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blendery/blendery-backend/pkg/db/models"
)

// Repository exposes cart persistence for both user and guest owners.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByGuestSession(ctx context.Context, sessionID string) (*models.Cart, error)
	GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetOrCreateForGuest(ctx context.Context, sessionID string) (*models.Cart, error)
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByUser loads the user's cart with items, nil when none exists.
func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&cart, "user_id = ?", userID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByGuestSession loads a guest cart with items, nil when none exists.
func (r *repository) FindByGuestSession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&cart, "guest_session_id = ?", sessionID).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreateForUser returns the user's cart, creating an empty one on first
// use. The unique index on user_id keeps concurrent first requests from
// producing two carts; the loser of the race re-reads the winner's row.
func (r *repository) GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if cart, err := r.FindByUser(ctx, userID); err != nil || cart != nil {
		return cart, err
	}
	cart := &models.Cart{ID: uuid.New(), UserID: &userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(cart).
		Error
	if err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

// GetOrCreateForGuest mirrors GetOrCreateForUser for guest sessions.
func (r *repository) GetOrCreateForGuest(ctx context.Context, sessionID string) (*models.Cart, error) {
	if cart, err := r.FindByGuestSession(ctx, sessionID); err != nil || cart != nil {
		return cart, err
	}
	cart := &models.Cart{ID: uuid.New(), GuestSessionID: &sessionID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "guest_session_id"}}, DoNothing: true}).
		Create(cart).
		Error
	if err != nil {
		return nil, err
	}
	return r.FindByGuestSession(ctx, sessionID)
}

// UpsertItem sets the line quantity for a product, inserting the line when
// the cart does not hold it yet.
func (r *repository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	item := &models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()}),
		}).
		Create(item).
		Error
}

// RemoveItem drops a single product line.
func (r *repository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).
		Error
}

// ClearItems removes every line but keeps the cart row.
func (r *repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).
		Error
}

// DeleteCart removes the cart and, via FK cascade, its items.
func (r *repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.ClearItems(ctx, cartID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", cartID).
		Delete(&models.Cart{}).
		Error
}
