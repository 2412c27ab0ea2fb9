package cart

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/catalog"
	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.InventoryRecord{}, &models.CartItem{}))
	return db
}

var testPricing = PricingConfig{
	TaxRate:                    0.085,
	FreeShippingThresholdCents: 5000,
	ShippingFeeCents:           599,
}

type testEnv struct {
	Catalog *catalog.Service
	Svc     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	catalogSvc := &catalog.Service{Repo: &catalog.GormRepo{DB: db}}
	inventorySvc := &inventory.Service{
		Repo:     &inventory.GormRepo{DB: db},
		Products: catalogSvc,
	}

	return &testEnv{
		Catalog: catalogSvc,
		Svc: &Service{
			Repo:      &GormRepo{DB: db},
			Inventory: inventorySvc,
			Products:  catalogSvc,
			Pricing:   testPricing,
		},
	}
}

func (e *testEnv) seedProduct(t *testing.T, priceCents, stock int64) uuid.UUID {
	t.Helper()

	p := &models.Product{
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "test product",
		PriceCents: priceCents,
	}
	require.NoError(t, e.Catalog.CreateProduct(context.Background(), p, stock, 0))
	return p.ID
}

func TestAddMergesQuantities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := UserOwner(uuid.New())
	productID := env.seedProduct(t, 1000, 5)

	item, err := env.Svc.Add(ctx, owner, productID, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, item.Quantity)

	item, err = env.Svc.Add(ctx, owner, productID, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, item.Quantity)

	// A sixth unit exceeds what the ledger can cover for this line.
	_, err = env.Svc.Add(ctx, owner, productID, 1)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	items, err := env.Svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 5, items[0].Quantity)
}

func TestAddValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := UserOwner(uuid.New())
	productID := env.seedProduct(t, 1000, 5)

	_, err := env.Svc.Add(ctx, owner, productID, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.Add(ctx, owner, uuid.Nil, 1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.Add(ctx, Owner{}, productID, 1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.Add(ctx, owner, uuid.New(), 1)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestUpdateRequiresExistingLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := UserOwner(uuid.New())
	productID := env.seedProduct(t, 1000, 5)

	_, err := env.Svc.Update(ctx, owner, productID, 2)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.Svc.Add(ctx, owner, productID, 1)
	require.NoError(t, err)

	item, err := env.Svc.Update(ctx, owner, productID, 4)
	require.NoError(t, err)
	require.EqualValues(t, 4, item.Quantity)

	// Update validates the absolute quantity, not a delta.
	_, err = env.Svc.Update(ctx, owner, productID, 6)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestRemoveAndClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := SessionOwner(uuid.NewString())
	first := env.seedProduct(t, 1000, 5)
	second := env.seedProduct(t, 2000, 5)

	_, err := env.Svc.Add(ctx, owner, first, 1)
	require.NoError(t, err)
	_, err = env.Svc.Add(ctx, owner, second, 1)
	require.NoError(t, err)

	require.NoError(t, env.Svc.Remove(ctx, owner, first))
	require.ErrorIs(t, env.Svc.Remove(ctx, owner, first), ErrNotFound)

	require.NoError(t, env.Svc.Clear(ctx, owner))
	items, err := env.Svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, items)

	// Clearing an empty cart stays a no-op.
	require.NoError(t, env.Svc.Clear(ctx, owner))
}

func TestSummaryMath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := UserOwner(uuid.New())
	first := env.seedProduct(t, 1250, 10)
	second := env.seedProduct(t, 800, 10)

	_, err := env.Svc.Add(ctx, owner, first, 2)
	require.NoError(t, err)
	_, err = env.Svc.Add(ctx, owner, second, 1)
	require.NoError(t, err)

	sum, err := env.Svc.Summary(ctx, owner)
	require.NoError(t, err)
	require.Len(t, sum.Lines, 2)

	// 2*1250 + 800 = 3300; below the free shipping threshold.
	require.EqualValues(t, 3300, sum.SubtotalCents)
	require.EqualValues(t, 281, sum.TaxCents) // round(3300 * 0.085) = round(280.5)
	require.EqualValues(t, 599, sum.ShippingCents)
	require.EqualValues(t, 3300+281+599, sum.TotalCents)
}

func TestSummaryFreeShippingAndEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := UserOwner(uuid.New())

	sum, err := env.Svc.Summary(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, sum.Lines)
	require.EqualValues(t, 0, sum.SubtotalCents)
	require.EqualValues(t, 0, sum.ShippingCents)
	require.EqualValues(t, 0, sum.TotalCents)

	productID := env.seedProduct(t, 2500, 10)
	_, err = env.Svc.Add(ctx, owner, productID, 2)
	require.NoError(t, err)

	sum, err = env.Svc.Summary(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 5000, sum.SubtotalCents)
	require.EqualValues(t, 0, sum.ShippingCents)
}

func TestTransferSessionMergesCarts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.NewString()
	shared := env.seedProduct(t, 1000, 10)
	sessionOnly := env.seedProduct(t, 2000, 10)

	_, err := env.Svc.Add(ctx, UserOwner(userID), shared, 3)
	require.NoError(t, err)
	_, err = env.Svc.Add(ctx, SessionOwner(sessionID), shared, 2)
	require.NoError(t, err)
	_, err = env.Svc.Add(ctx, SessionOwner(sessionID), sessionOnly, 1)
	require.NoError(t, err)

	require.NoError(t, env.Svc.TransferSession(ctx, sessionID, userID))

	items, err := env.Svc.Get(ctx, UserOwner(userID))
	require.NoError(t, err)
	require.Len(t, items, 2)

	byProduct := map[uuid.UUID]uint{}
	for _, it := range items {
		byProduct[it.ProductID] = it.Quantity
	}
	require.EqualValues(t, 5, byProduct[shared])
	require.EqualValues(t, 1, byProduct[sessionOnly])

	sessionItems, err := env.Svc.Get(ctx, SessionOwner(sessionID))
	require.NoError(t, err)
	require.Empty(t, sessionItems)

	// Replaying the transfer with the now-empty session changes nothing.
	require.NoError(t, env.Svc.TransferSession(ctx, sessionID, userID))
	items, err = env.Svc.Get(ctx, UserOwner(userID))
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestTransferSessionSkipsUnavailableLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.NewString()
	productID := env.seedProduct(t, 1000, 4)

	_, err := env.Svc.Add(ctx, UserOwner(userID), productID, 3)
	require.NoError(t, err)
	_, err = env.Svc.Add(ctx, SessionOwner(sessionID), productID, 1)
	require.NoError(t, err)

	// Stock dropped after both lines were added; 3+1 no longer fits.
	_, err = env.Svc.Inventory.UpdateAvailable(ctx, productID, 3)
	require.NoError(t, err)

	require.NoError(t, env.Svc.TransferSession(ctx, sessionID, userID))

	items, err := env.Svc.Get(ctx, UserOwner(userID))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 3, items[0].Quantity)

	sessionItems, err := env.Svc.Get(ctx, SessionOwner(sessionID))
	require.NoError(t, err)
	require.Empty(t, sessionItems)
}

func TestTransferSessionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.ErrorIs(t, env.Svc.TransferSession(ctx, "", uuid.New()), ErrValidation)
	require.ErrorIs(t, env.Svc.TransferSession(ctx, uuid.NewString(), uuid.Nil), ErrValidation)
}

func TestOwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	productID := env.seedProduct(t, 1000, 10)

	first := UserOwner(uuid.New())
	second := SessionOwner(uuid.NewString())

	_, err := env.Svc.Add(ctx, first, productID, 2)
	require.NoError(t, err)
	_, err = env.Svc.Add(ctx, second, productID, 4)
	require.NoError(t, err)

	items, err := env.Svc.Get(ctx, first)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 2, items[0].Quantity)

	items, err = env.Svc.Get(ctx, second)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 4, items[0].Quantity)
}
