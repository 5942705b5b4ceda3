package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/cart"
	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/pagination"
)

type boundedTxRunner interface {
	WithBoundedTx(ctx context.Context, bounds db.TxBounds, fn func(tx *gorm.DB) error) error
}

// Service exposes order reads and lifecycle operations.
type Service interface {
	Get(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	Cancel(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*models.Order, error)
	Advance(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, note string) (*models.Order, error)
}

type service struct {
	tx          boundedTxRunner
	repo        Repository
	productRepo products.Repository
	bounds      db.TxBounds
}

// NewService builds the orders service.
func NewService(tx boundedTxRunner, repo Repository, productRepo products.Repository, bounds db.TxBounds) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{tx: tx, repo: repo, productRepo: productRepo, bounds: bounds}, nil
}

func (s *service) Get(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*models.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if !ownerMatches(order, owner) {
		// a foreign order looks identical to a missing one
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListForUser(ctx, userID, params)
}

// Cancel moves a non-terminal order to cancelled and puts every reserved
// unit back on the shelf, all inside one bounded transaction.
func (s *service) Cancel(ctx context.Context, owner cart.Owner, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.Get(ctx, owner, orderID); err != nil {
		return nil, err
	}

	err := s.tx.WithBoundedTx(ctx, s.bounds, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		moved, err := repo.TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
		}

		for _, item := range order.Items {
			if err := productRepo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		from := order.Status
		note := "cancelled by customer"
		return repo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   enums.OrderStatusCancelled,
			Note:       &note,
		})
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return s.repo.FindByID(ctx, orderID)
}

// Advance applies a fulfillment transition (paid to processing, processing to
// shipped, shipped to completed) on behalf of back-office tooling.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, note string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	err := s.tx.WithBoundedTx(ctx, s.bounds, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if err := ValidateTransition(order.Status, to); err != nil {
			return err
		}

		moved, err := repo.TransitionStatus(ctx, order.ID, order.Status, to)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry")
		}

		from := order.Status
		log := &models.OrderStatusLog{OrderID: order.ID, FromStatus: &from, ToStatus: to}
		if note != "" {
			log.Note = &note
		}
		return repo.AppendStatusLog(ctx, log)
	})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return s.repo.FindByID(ctx, orderID)
}

func ownerMatches(order *models.Order, owner cart.Owner) bool {
	if owner.UserID != nil {
		return order.UserID != nil && *order.UserID == *owner.UserID
	}
	if owner.GuestSessionID != nil {
		return order.GuestSessionID != nil && *order.GuestSessionID == *owner.GuestSessionID
	}
	return false
}

func mapTxErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "order transaction timed out")
	}
	return err
}
