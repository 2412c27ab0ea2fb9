package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/cart"
	"github.com/mkotelnikov/storefront/internal/catalog"
	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/models"
	"github.com/mkotelnikov/storefront/internal/notify"
	"github.com/mkotelnikov/storefront/internal/orders"
)

var testSecret = []byte("test-secret")

var testPricing = cart.PricingConfig{
	TaxRate:                    0.085,
	FreeShippingThresholdCents: 5000,
	ShippingFeeCents:           599,
}

type testEnv struct {
	DB        *gorm.DB
	E         *echo.Echo
	Registry  *notify.Registry
	Catalog   *catalog.Service
	Inventory *inventory.Service
	Cart      *cart.Service
	Orders    *orders.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.InventoryRecord{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	))

	registry := notify.NewRegistry(time.Second, time.Minute, nil)
	catalogSvc := &catalog.Service{Repo: &catalog.GormRepo{DB: db}}
	inventorySvc := &inventory.Service{
		Repo:     &inventory.GormRepo{DB: db},
		Products: catalogSvc,
		Events:   registry,
	}
	cartSvc := &cart.Service{
		Repo:      &cart.GormRepo{DB: db},
		Inventory: inventorySvc,
		Products:  catalogSvc,
		Pricing:   testPricing,
	}
	orderSvc := &orders.Service{
		Repo:      &orders.GormRepo{DB: db},
		Cart:      cartSvc,
		Inventory: inventorySvc,
		Products:  catalogSvc,
		Pricing:   testPricing,
		Events:    registry,
	}

	e := echo.New()
	Register(e, &Deps{
		Catalog:   &CatalogHTTP{Svc: catalogSvc},
		Inventory: &InventoryHTTP{Svc: inventorySvc},
		Cart:      &CartHTTP{Svc: cartSvc, JWTSecret: testSecret},
		Orders:    &OrderHTTP{Svc: orderSvc},
		Events:    &EventsHTTP{Registry: registry},
		JWTSecret: testSecret,
	})

	return &testEnv{
		DB:        db,
		E:         e,
		Registry:  registry,
		Catalog:   catalogSvc,
		Inventory: inventorySvc,
		Cart:      cartSvc,
		Orders:    orderSvc,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	e.E.ServeHTTP(rec, req)
	return rec
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

func authCookie(t *testing.T, userID uuid.UUID, role string) *http.Cookie {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: token, Path: "/"}
}

func sessionCookieValue(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie {
			return ck
		}
	}
	return nil
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
