package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/cart"
	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  guest_session_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  discount_code TEXT,
  shipping_address TEXT,
  payment_intent_id TEXT,
  payment_client_secret TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_status_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newOrdersService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client := db.NewWithConn(conn)
	svc, err := NewService(client, NewRepository(conn), products.NewRepository(conn), db.TxBounds{})
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus, items []models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        &userID,
		Status:        status,
		Currency:      enums.CurrencyUSD,
		SubtotalCents: 3000,
		ShippingCents: 599,
		TaxCents:      262,
		TotalCents:    3861,
		Items:         items,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func seedStockedProduct(t *testing.T, conn *gorm.DB, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       "Breakfast Blend",
		Category:   enums.ProductCategoryCoffee,
		PriceCents: 1000,
		Stock:      stock,
		Active:     true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestCancelRestocksItems(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrdersService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	product := seedStockedProduct(t, conn, 2)
	order := seedOrder(t, conn, userID, enums.OrderStatusPending, []models.OrderItem{
		{ID: uuid.New(), ProductID: product.ID, Name: product.Name, UnitPriceCents: 1000, Quantity: 3},
	})

	cancelled, err := svc.Cancel(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	var fetched models.Product
	require.NoError(t, conn.First(&fetched, "id = ?", product.ID).Error)
	assert.Equal(t, 5, fetched.Stock)

	require.Len(t, cancelled.StatusLogs, 1)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.StatusLogs[0].ToStatus)
	require.NotNil(t, cancelled.StatusLogs[0].FromStatus)
	assert.Equal(t, enums.OrderStatusPending, *cancelled.StatusLogs[0].FromStatus)
}

func TestCancelRejectsTerminalOrder(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrdersService(t, conn)
	userID := uuid.New()

	order := seedOrder(t, conn, userID, enums.OrderStatusCompleted, nil)

	_, err := svc.Cancel(context.Background(), cart.UserOwner(userID), order.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestCancelIsSingleShot(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrdersService(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	product := seedStockedProduct(t, conn, 0)
	order := seedOrder(t, conn, userID, enums.OrderStatusPending, []models.OrderItem{
		{ID: uuid.New(), ProductID: product.ID, Name: product.Name, UnitPriceCents: 1000, Quantity: 1},
	})

	_, err := svc.Cancel(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)

	// second cancel must not restock again
	_, err = svc.Cancel(ctx, cart.UserOwner(userID), order.ID)
	require.Error(t, err)

	var fetched models.Product
	require.NoError(t, conn.First(&fetched, "id = ?", product.ID).Error)
	assert.Equal(t, 1, fetched.Stock)
}

func TestGetHidesForeignOrders(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrdersService(t, conn)
	ctx := context.Background()

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPending, nil)

	_, err := svc.Get(ctx, cart.UserOwner(uuid.New()), order.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestAdvanceWalksFulfillment(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrdersService(t, conn)
	ctx := context.Background()

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPaid, nil)

	for _, to := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusCompleted,
	} {
		updated, err := svc.Advance(ctx, order.ID, to, "")
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	// completed is terminal
	_, err := svc.Advance(ctx, order.ID, enums.OrderStatusCancelled, "")
	require.Error(t, err)
}

func TestAdvanceRejectsSkippedStates(t *testing.T) {
	conn := setupOrdersTestDB(t)
	svc := newOrdersService(t, conn)

	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPaid, nil)

	_, err := svc.Advance(context.Background(), order.ID, enums.OrderStatusCompleted, "")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}
