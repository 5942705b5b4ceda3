package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db/models"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// View is the cart as the storefront renders it, with current catalog data
// joined onto each line.
type View struct {
	CartID        uuid.UUID `json:"cart_id"`
	Items         []Line    `json:"items"`
	SubtotalCents int       `json:"subtotal_cents"`
}

// Line is one cart row plus advisory availability. Available reflects stock
// at read time only; the binding check happens at checkout.
type Line struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
	Available      int       `json:"available"`
}

// Service exposes cart reads and mutations.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*View, error)
	SetItem(ctx context.Context, owner Owner, productID uuid.UUID, qty int) (*View, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*View, error)
	MergeGuestCart(ctx context.Context, userID uuid.UUID, guestSessionID string) (*View, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	productRepo products.Repository
}

// NewService builds the cart service.
func NewService(tx txRunner, repo Repository, productRepo products.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{tx: tx, repo: repo, productRepo: productRepo}, nil
}

func (s *service) GetCart(ctx context.Context, owner Owner) (*View, error) {
	record, err := s.loadOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, record)
}

// SetItem pins the line quantity for a product. Quantity zero removes the
// line. The stock check here is advisory; checkout re-verifies inside its
// transaction.
func (s *service) SetItem(ctx context.Context, owner Owner, productID uuid.UUID, qty int) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if qty == 0 {
		return s.RemoveItem(ctx, owner, productID)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if products.NotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	if qty > product.Stock {
		return nil, pkgerrors.InsufficientStock(product.ID.String(), product.Stock, qty)
	}

	record, err := s.loadOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertItem(ctx, record.ID, productID, qty); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	record, err := s.loadOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, record.ID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

// MergeGuestCart folds a guest cart into the user's cart on login, summing
// quantities for lines both carts hold. The guest cart is deleted inside the
// same transaction, so replaying the call finds nothing to merge and simply
// returns the user's cart.
func (s *service) MergeGuestCart(ctx context.Context, userID uuid.UUID, guestSessionID string) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(guestSessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest session required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guest, err := repo.FindByGuestSession(ctx, guestSessionID)
		if err != nil {
			return err
		}
		if guest == nil {
			// nothing left to merge
			return nil
		}

		user, err := repo.GetOrCreateForUser(ctx, userID)
		if err != nil {
			return err
		}

		existing := make(map[uuid.UUID]int, len(user.Items))
		for _, item := range user.Items {
			existing[item.ProductID] = item.Quantity
		}

		for _, item := range guest.Items {
			qty := item.Quantity + existing[item.ProductID]
			if err := repo.UpsertItem(ctx, user.ID, item.ProductID, qty); err != nil {
				return err
			}
		}

		return repo.DeleteCart(ctx, guest.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, UserOwner(userID))
}

func (s *service) loadOrCreate(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if owner.UserID != nil {
		return s.repo.GetOrCreateForUser(ctx, *owner.UserID)
	}
	return s.repo.GetOrCreateForGuest(ctx, *owner.GuestSessionID)
}

func (s *service) buildView(ctx context.Context, record *models.Cart) (*View, error) {
	view := &View{CartID: record.ID, Items: []Line{}}
	if len(record.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}
	rows, err := s.productRepo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		catalog[row.ID] = row
	}

	for _, item := range record.Items {
		product, ok := catalog[item.ProductID]
		if !ok {
			// delisted since it was added, hide the line
			continue
		}
		line := Line{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: product.PriceCents * item.Quantity,
			Available:      product.Stock,
		}
		view.Items = append(view.Items, line)
		view.SubtotalCents += line.LineTotalCents
	}
	return view, nil
}
