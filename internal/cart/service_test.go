package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE,
  guest_session_id TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newCartService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client := db.NewWithConn(conn)
	svc, err := NewService(client, NewRepository(conn), products.NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, conn *gorm.DB, name string, priceCents, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Category:   enums.ProductCategoryTea,
		PriceCents: priceCents,
		Stock:      stock,
		Active:     true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestSetItemBuildsView(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()

	sencha := seedProduct(t, conn, "Sencha", 1200, 10)
	owner := UserOwner(uuid.New())

	view, err := svc.SetItem(ctx, owner, sencha.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, 2400, view.Items[0].LineTotalCents)
	assert.Equal(t, 2400, view.SubtotalCents)
	assert.Equal(t, 10, view.Items[0].Available)

	// setting again replaces, it does not add
	view, err = svc.SetItem(ctx, owner, sencha.ID, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
}

func TestSetItemAdvisoryStockCheck(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)

	lowStock := seedProduct(t, conn, "Gyokuro", 3000, 2)

	_, err := svc.SetItem(context.Background(), UserOwner(uuid.New()), lowStock.ID, 3)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStock, appErr.Code())

	details, ok := appErr.Details().(pkgerrors.StockDetails)
	require.True(t, ok)
	assert.Equal(t, 2, details.Available)
	assert.Equal(t, 3, details.Requested)
}

func TestSetItemZeroRemovesLine(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()

	sencha := seedProduct(t, conn, "Sencha", 1200, 10)
	owner := GuestOwner("guest-abc")

	_, err := svc.SetItem(ctx, owner, sencha.ID, 2)
	require.NoError(t, err)

	view, err := svc.SetItem(ctx, owner, sencha.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestMergeGuestCartSumsQuantities(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()

	sencha := seedProduct(t, conn, "Sencha", 1200, 10)
	assam := seedProduct(t, conn, "Assam", 900, 10)
	userID := uuid.New()
	guestSession := "guest-" + uuid.NewString()

	_, err := svc.SetItem(ctx, UserOwner(userID), sencha.ID, 1)
	require.NoError(t, err)
	_, err = svc.SetItem(ctx, GuestOwner(guestSession), sencha.ID, 2)
	require.NoError(t, err)
	_, err = svc.SetItem(ctx, GuestOwner(guestSession), assam.ID, 1)
	require.NoError(t, err)

	view, err := svc.MergeGuestCart(ctx, userID, guestSession)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	byProduct := map[uuid.UUID]Line{}
	for _, line := range view.Items {
		byProduct[line.ProductID] = line
	}
	assert.Equal(t, 3, byProduct[sencha.ID].Quantity)
	assert.Equal(t, 1, byProduct[assam.ID].Quantity)

	// guest cart is gone
	guestCart, err := NewRepository(conn).FindByGuestSession(ctx, guestSession)
	require.NoError(t, err)
	assert.Nil(t, guestCart)
}

func TestMergeGuestCartIsIdempotent(t *testing.T) {
	conn := setupCartTestDB(t)
	svc := newCartService(t, conn)
	ctx := context.Background()

	sencha := seedProduct(t, conn, "Sencha", 1200, 10)
	userID := uuid.New()
	guestSession := "guest-" + uuid.NewString()

	_, err := svc.SetItem(ctx, GuestOwner(guestSession), sencha.ID, 2)
	require.NoError(t, err)

	first, err := svc.MergeGuestCart(ctx, userID, guestSession)
	require.NoError(t, err)
	second, err := svc.MergeGuestCart(ctx, userID, guestSession)
	require.NoError(t, err)

	require.Len(t, first.Items, 1)
	require.Len(t, second.Items, 1)
	assert.Equal(t, first.Items[0].Quantity, second.Items[0].Quantity)
}

func TestOwnerValidation(t *testing.T) {
	if err := (Owner{}).Validate(); err == nil {
		t.Fatal("expected empty owner to be rejected")
	}
	userID := uuid.New()
	session := "guest-1"
	if err := (Owner{UserID: &userID, GuestSessionID: &session}).Validate(); err == nil {
		t.Fatal("expected dual owner to be rejected")
	}
	if err := UserOwner(userID).Validate(); err != nil {
		t.Fatalf("expected user owner to validate, got %v", err)
	}
	if err := GuestOwner(session).Validate(); err != nil {
		t.Fatalf("expected guest owner to validate, got %v", err)
	}
}
