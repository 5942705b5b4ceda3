package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/cart"
	"github.com/blendery/blendery-backend/internal/discounts"
	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/config"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/metrics"
	"github.com/blendery/blendery-backend/pkg/types"
)

var validate = validator.New()

type boundedTxRunner interface {
	WithBoundedTx(ctx context.Context, bounds db.TxBounds, fn func(tx *gorm.DB) error) error
}

// PlaceOrderInput is what the buyer submits at checkout.
type PlaceOrderInput struct {
	ShippingAddress types.Address `validate:"required"`
	Currency        string        `validate:"omitempty,oneof=USD EUR GBP"`
	DiscountCode    *string       `validate:"omitempty,min=1,max=64"`
}

// Service turns a cart into a durable order.
type Service interface {
	Execute(ctx context.Context, owner cart.Owner, input PlaceOrderInput) (*models.Order, error)
}

type service struct {
	tx        boundedTxRunner
	cartRepo  cart.Repository
	products  products.Repository
	orders    orders.Repository
	discounts discounts.Validator
	cfg       config.CheckoutConfig
	metrics   *metrics.StorefrontMetrics
}

// NewService builds the checkout service. Metrics may be nil.
func NewService(
	tx boundedTxRunner,
	cartRepo cart.Repository,
	productRepo products.Repository,
	orderRepo orders.Repository,
	discountValidator discounts.Validator,
	cfg config.CheckoutConfig,
	collector *metrics.StorefrontMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if discountValidator == nil {
		return nil, fmt.Errorf("discount validator required")
	}
	return &service{
		tx:        tx,
		cartRepo:  cartRepo,
		products:  productRepo,
		orders:    orderRepo,
		discounts: discountValidator,
		cfg:       cfg,
		metrics:   collector,
	}, nil
}

// Execute places an order from the owner's cart. Stock is re-checked inside
// the transaction with conditional decrements, so two buyers racing for the
// last unit cannot both win: the loser's decrement matches no row, the whole
// transaction rolls back, and the cart is left untouched.
func (s *service) Execute(ctx context.Context, owner cart.Owner, input PlaceOrderInput) (*models.Order, error) {
	started := time.Now()
	order, err := s.execute(ctx, owner, input)
	if err != nil {
		code := "internal"
		if appErr := pkgerrors.As(err); appErr != nil {
			code = string(appErr.Code())
		}
		s.metrics.IncOrderFailed(code)
		s.metrics.ObserveCheckout("error", time.Since(started))
		return nil, err
	}
	s.metrics.IncOrderPlaced()
	s.metrics.ObserveCheckout("success", time.Since(started))
	return order, nil
}

func (s *service) execute(ctx context.Context, owner cart.Owner, input PlaceOrderInput) (*models.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	input.ShippingAddress.Normalize()
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout input")
	}

	currency := enums.CurrencyUSD
	if input.Currency != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
		}
		currency = parsed
	}

	// cheap validation phase, no transaction open yet: a bad cart, a
	// drained shelf, or a stale code gets rejected here
	record, err := s.loadCart(ctx, s.cartRepo, owner)
	if err != nil {
		return nil, err
	}
	if record == nil || len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	catalog, err := s.loadCatalog(ctx, s.products, record.Items)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(record.Items))
	lines := make([]PricedLine, 0, len(record.Items))
	for _, item := range record.Items {
		product := catalog[item.ProductID]
		if product.Stock < item.Quantity {
			return nil, pkgerrors.InsufficientStock(product.ID.String(), product.Stock, item.Quantity)
		}
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			ProductID:      product.ID,
			Name:           products.NormalizeName(product.Name),
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
		})
		lines = append(lines, PricedLine{UnitPriceCents: product.PriceCents, Quantity: item.Quantity})
	}

	percentOff := 0
	var appliedCode *string
	if input.DiscountCode != nil {
		subtotal := 0
		for _, line := range lines {
			subtotal += line.UnitPriceCents * line.Quantity
		}
		row, err := s.discounts.Validate(ctx, *input.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
		percentOff = row.PercentOff
		appliedCode = &row.Code
	}

	totals := ComputeTotals(lines, percentOff, s.cfg)
	address := input.ShippingAddress

	var orderID uuid.UUID
	err = s.tx.WithBoundedTx(ctx, db.TxBounds{LockWait: s.cfg.LockWait, Timeout: s.cfg.TxTimeout}, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		// binding stock check: decrement or fail, in stable order
		for _, item := range record.Items {
			ok, err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				current, err := productRepo.FindByID(ctx, item.ProductID)
				if err != nil {
					return err
				}
				return pkgerrors.InsufficientStock(item.ProductID.String(), current.Stock, item.Quantity)
			}
		}

		order := &models.Order{
			ID:              uuid.New(),
			UserID:          owner.UserID,
			GuestSessionID:  owner.GuestSessionID,
			Status:          enums.OrderStatusPending,
			Currency:        currency,
			SubtotalCents:   totals.SubtotalCents,
			ShippingCents:   totals.ShippingCents,
			TaxCents:        totals.TaxCents,
			DiscountCents:   totals.DiscountCents,
			TotalCents:      totals.TotalCents,
			DiscountCode:    appliedCode,
			ShippingAddress: &address,
			Items:           items,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}

		if err := orderRepo.AppendStatusLog(ctx, &models.OrderStatusLog{
			OrderID:  order.ID,
			ToStatus: enums.OrderStatusPending,
		}); err != nil {
			return err
		}

		if err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return err
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		if db.IsTimeout(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "checkout transaction timed out")
		}
		return nil, err
	}

	return s.orders.FindByID(ctx, orderID)
}

func (s *service) loadCart(ctx context.Context, repo cart.Repository, owner cart.Owner) (*models.Cart, error) {
	if owner.UserID != nil {
		return repo.FindByUser(ctx, *owner.UserID)
	}
	return repo.FindByGuestSession(ctx, *owner.GuestSessionID)
}

func (s *service) loadCatalog(ctx context.Context, repo products.Repository, items []models.CartItem) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	rows, err := repo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		catalog[row.ID] = row
	}
	for _, item := range items {
		if _, ok := catalog[item.ProductID]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is no longer available", item.ProductID))
		}
	}
	return catalog, nil
}
