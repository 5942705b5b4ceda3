package payments

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
	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

type fakeGateway struct {
	createCalls int
	createErr   error
	statusErr   error
	status      string
}

func (f *fakeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &IntentResult{
		IntentID:     "pi_" + req.OrderID.String()[:8],
		ClientSecret: "secret_" + req.OrderID.String()[:8],
		Status:       "requires_payment_method",
	}, nil
}

func (f *fakeGateway) GetStatus(ctx context.Context, intentID string) (*IntentStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	status := f.status
	if status == "" {
		status = "processing"
	}
	return &IntentStatus{IntentID: intentID, Status: status}, nil
}

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
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
  stock INTEGER NOT NULL DEFAULT 0,
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

func newPaymentsService(t *testing.T, conn *gorm.DB, gateway Gateway) Service {
	t.Helper()
	client := db.NewWithConn(conn)
	repo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(client, repo, products.NewRepository(conn), db.TxBounds{})
	require.NoError(t, err)
	svc, err := NewService(client, orderSvc, repo, gateway, nil)
	require.NoError(t, err)
	return svc
}

func seedPendingOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        &userID,
		Status:        status,
		Currency:      enums.CurrencyUSD,
		SubtotalCents: 3000,
		ShippingCents: 599,
		TaxCents:      263,
		TotalCents:    3862,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestCreateIntentTransitionsOrder(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	gateway := &fakeGateway{}
	svc := newPaymentsService(t, conn, gateway)
	ctx := context.Background()
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPending)

	view, err := svc.CreateIntent(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, view.IntentID)
	assert.NotEmpty(t, view.ClientSecret)
	assert.Equal(t, 3862, view.AmountCents)
	assert.Equal(t, 1, gateway.createCalls)

	var fetched models.Order
	require.NoError(t, conn.First(&fetched, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaymentProcessing, fetched.Status)
	require.NotNil(t, fetched.PaymentIntentID)
	assert.Equal(t, view.IntentID, *fetched.PaymentIntentID)
}

func TestCreateIntentIsIdempotent(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	gateway := &fakeGateway{}
	svc := newPaymentsService(t, conn, gateway)
	ctx := context.Background()
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPending)

	first, err := svc.CreateIntent(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	second, err := svc.CreateIntent(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.IntentID, second.IntentID)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)
	assert.Equal(t, 1, gateway.createCalls)
}

func TestCreateIntentReopensFailedOrder(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	gateway := &fakeGateway{}
	svc := newPaymentsService(t, conn, gateway)
	ctx := context.Background()
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPaymentFailed)
	intentID := "pi_retry"
	secret := "secret_retry"
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"payment_intent_id":     intentID,
		"payment_client_secret": secret,
	}).Error)

	view, err := svc.CreateIntent(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	assert.Equal(t, intentID, view.IntentID)
	assert.Equal(t, secret, view.ClientSecret)
	// stored handle reused, no new provider intent
	assert.Zero(t, gateway.createCalls)

	// the retry pulls the order back so the success webhook can land
	var fetched models.Order
	require.NoError(t, conn.First(&fetched, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaymentProcessing, fetched.Status)

	var logCount int64
	require.NoError(t, conn.Model(&models.OrderStatusLog{}).Where("order_id = ?", order.ID).Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount)
}

func TestCreateIntentRejectsWrongStatus(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, conn, &fakeGateway{})
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPaid)

	_, err := svc.CreateIntent(context.Background(), cart.UserOwner(userID), order.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestCreateIntentSurfacesDecline(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	gateway := &fakeGateway{createErr: pkgerrors.New(pkgerrors.CodeCardDeclined, "card was declined")}
	svc := newPaymentsService(t, conn, gateway)
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPending)

	_, err := svc.CreateIntent(context.Background(), cart.UserOwner(userID), order.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeCardDeclined, appErr.Code())

	// order stays pending, nothing stored
	var fetched models.Order
	require.NoError(t, conn.First(&fetched, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, fetched.Status)
	assert.Nil(t, fetched.PaymentIntentID)
}

func TestGetStatusQueriesProvider(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	gateway := &fakeGateway{status: "succeeded"}
	svc := newPaymentsService(t, conn, gateway)
	ctx := context.Background()
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPending)
	_, err := svc.CreateIntent(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)

	view, err := svc.GetStatus(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", view.ProviderStatus)
	assert.False(t, view.Stale)
}

func TestGetStatusFallsBackWhenProviderDown(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	gateway := &fakeGateway{}
	svc := newPaymentsService(t, conn, gateway)
	ctx := context.Background()
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPending)
	_, err := svc.CreateIntent(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)

	gateway.statusErr = pkgerrors.New(pkgerrors.CodePaymentProvider, "provider unreachable")

	view, err := svc.GetStatus(ctx, cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Equal(t, enums.OrderStatusPaymentProcessing, view.OrderStatus)
	assert.Equal(t, "processing", view.ProviderStatus)
}

func TestGetStatusWithoutIntent(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, conn, &fakeGateway{})
	userID := uuid.New()

	order := seedPendingOrder(t, conn, userID, enums.OrderStatusPending)

	view, err := svc.GetStatus(context.Background(), cart.UserOwner(userID), order.ID)
	require.NoError(t, err)
	assert.Empty(t, view.IntentID)
	assert.Equal(t, enums.OrderStatusPending, view.OrderStatus)
}
