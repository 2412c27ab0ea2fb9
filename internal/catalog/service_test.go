package catalog

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/models"
)

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.InventoryRecord{}))
	return &Service{Repo: &GormRepo{DB: db}}, db
}

func TestCreateProductSeedsInventory(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	p := &models.Product{SKU: "SKU-1", Name: "widget", PriceCents: 1500}
	require.NoError(t, svc.CreateProduct(ctx, p, 25, 5))
	require.NotEqual(t, uuid.Nil, p.ID)
	require.True(t, p.IsActive)

	var rec models.InventoryRecord
	require.NoError(t, db.First(&rec, "product_id = ?", p.ID).Error)
	require.EqualValues(t, 25, rec.QuantityAvailable)
	require.EqualValues(t, 5, rec.ReorderLevel)
	require.EqualValues(t, 0, rec.QuantityReserved)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		product models.Product
		stock   int64
	}{
		{"missing sku", models.Product{Name: "x", PriceCents: 1}, 0},
		{"missing name", models.Product{SKU: "S", PriceCents: 1}, 0},
		{"negative price", models.Product{SKU: "S", Name: "x", PriceCents: -1}, 0},
		{"negative stock", models.Product{SKU: "S", Name: "x", PriceCents: 1}, -1},
	}
	for _, tc := range cases {
		p := tc.product
		require.ErrorIs(t, svc.CreateProduct(ctx, &p, tc.stock, 0), ErrValidation, tc.name)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	first := &models.Product{SKU: "SKU-DUP", Name: "a", PriceCents: 1}
	require.NoError(t, svc.CreateProduct(ctx, first, 0, 0))

	second := &models.Product{SKU: "SKU-DUP", Name: "b", PriceCents: 2}
	require.ErrorIs(t, svc.CreateProduct(ctx, second, 0, 0), gorm.ErrDuplicatedKey)
}

func TestDeactivateProduct(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	p := &models.Product{SKU: "SKU-2", Name: "gadget", PriceCents: 900}
	require.NoError(t, svc.CreateProduct(ctx, p, 1, 0))

	require.NoError(t, svc.DeactivateProduct(ctx, p.ID))

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.ErrorIs(t, svc.DeactivateProduct(ctx, uuid.New()), ErrNotFound)
	_, err = svc.GetProduct(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
