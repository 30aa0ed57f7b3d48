package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzalemon/pos-backend/pkg/db/dbtest"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func stringPtr(value string) *string {
	return &value
}

func TestCreateAndGetProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "  Espresso ",
		Price:    decimal.RequireFromString("3.50"),
		Barcode:  stringPtr("4006381333931"),
		Category: stringPtr("coffee"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Espresso", created.Name)
	assert.Equal(t, "3.50", created.Price.StringFixed(2))
	assert.True(t, created.IsActive)

	fetched, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	byBarcode, err := svc.GetByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byBarcode.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: " ", Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", Price: decimal.RequireFromString("-1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", Price: decimal.RequireFromString("1.005")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDuplicateBarcodeConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "A", Price: decimal.NewFromInt(1), Barcode: stringPtr("111")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "B", Price: decimal.NewFromInt(1), Barcode: stringPtr("111")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestGetProductNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetProduct(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetByBarcode(context.Background(), "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListProductsSearchAndDeactivate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	espresso, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Espresso", Price: decimal.RequireFromString("3.50"), Category: stringPtr("coffee")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Chicken Burger", Price: decimal.RequireFromString("8.50"), Category: stringPtr("food")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Iced Espresso", Price: decimal.RequireFromString("4.00"), Category: stringPtr("coffee")})
	require.NoError(t, err)

	list, err := svc.ListProducts(ctx, ListProductsInput{Search: "ESPRESSO"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Espresso", list[0].Name)

	food, err := svc.ListProducts(ctx, ListProductsInput{Categories: []string{"food"}})
	require.NoError(t, err)
	require.Len(t, food, 1)
	assert.Equal(t, "Chicken Burger", food[0].Name)

	require.NoError(t, svc.DeactivateProduct(ctx, espresso.ID))
	list, err = svc.ListProducts(ctx, ListProductsInput{Search: "espresso"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Iced Espresso", list[0].Name)

	all, err := svc.ListProducts(ctx, ListProductsInput{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateProductAndGetMany(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Latte", Price: decimal.RequireFromString("4.00")})
	require.NoError(t, err)

	price := decimal.RequireFromString("4.25")
	updated, err := svc.UpdateProduct(ctx, p.ID, UpdateProductInput{Name: stringPtr("Oat Latte"), Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Oat Latte", updated.Name)
	assert.Equal(t, "4.25", updated.Price.StringFixed(2))

	_, err = svc.UpdateProduct(ctx, p.ID, UpdateProductInput{Name: stringPtr("")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	found, err := svc.GetMany(ctx, []uuid.UUID{p.ID, missing})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, int64(425), found[p.ID].PriceCents)
}
