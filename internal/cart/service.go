package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

// PricingConfig is injected once at wiring time; tax and shipping rules
// are never hard-coded at call sites.
type PricingConfig struct {
	TaxRate                    float64
	FreeShippingThresholdCents int64
	ShippingFeeCents           int64
}

func (p PricingConfig) Tax(subtotalCents int64) int64 {
	return int64(math.Round(float64(subtotalCents) * p.TaxRate))
}

func (p PricingConfig) Shipping(subtotalCents int64) int64 {
	if subtotalCents == 0 || subtotalCents >= p.FreeShippingThresholdCents {
		return 0
	}
	return p.ShippingFeeCents
}

type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type Service struct {
	Repo      *GormRepo
	Inventory *inventory.Service
	Products  ProductReader
	Pricing   PricingConfig
}

func (s *Service) Get(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("%w: cart owner must be a user or a session", ErrValidation)
	}
	return s.Repo.Get(ctx, owner)
}

// Add validates the combined quantity (existing line plus the delta)
// against the ledger, not just the increment.
func (s *Service) Add(ctx context.Context, owner Owner, productID uuid.UUID, qty uint) (*models.CartItem, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("%w: cart owner must be a user or a session", ErrValidation)
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if qty == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	var existing uint
	line, err := s.Repo.GetLine(ctx, owner, productID)
	switch {
	case err == nil:
		existing = line.Quantity
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}

	if err := s.Inventory.ValidateAvailability(ctx, productID, int64(existing)+int64(qty)); err != nil {
		return nil, err
	}
	return s.Repo.AddQuantity(ctx, owner, productID, qty)
}

func (s *Service) Update(ctx context.Context, owner Owner, productID uuid.UUID, qty uint) (*models.CartItem, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("%w: cart owner must be a user or a session", ErrValidation)
	}
	if qty == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	if _, err := s.Repo.GetLine(ctx, owner, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart line for product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}
	if err := s.Inventory.ValidateAvailability(ctx, productID, int64(qty)); err != nil {
		return nil, err
	}

	item, err := s.Repo.SetQuantity(ctx, owner, productID, qty)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart line for product %s: %w", productID, ErrNotFound)
	}
	return item, err
}

func (s *Service) Remove(ctx context.Context, owner Owner, productID uuid.UUID) error {
	if !owner.Valid() {
		return fmt.Errorf("%w: cart owner must be a user or a session", ErrValidation)
	}
	err := s.Repo.Remove(ctx, owner, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cart line for product %s: %w", productID, ErrNotFound)
	}
	return err
}

func (s *Service) Clear(ctx context.Context, owner Owner) error {
	if !owner.Valid() {
		return fmt.Errorf("%w: cart owner must be a user or a session", ErrValidation)
	}
	return s.Repo.Clear(ctx, owner)
}

type SummaryLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       uint      `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

type Summary struct {
	Lines         []SummaryLine `json:"lines"`
	SubtotalCents int64         `json:"subtotal_cents"`
	TaxCents      int64         `json:"tax_cents"`
	ShippingCents int64         `json:"shipping_cents"`
	TotalCents    int64         `json:"total_cents"`
}

func (s *Service) Summary(ctx context.Context, owner Owner) (*Summary, error) {
	items, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Lines: make([]SummaryLine, 0, len(items))}
	for _, it := range items {
		product, err := s.Products.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, ErrNotFound)
		}
		lineTotal := product.PriceCents * int64(it.Quantity)
		sum.Lines = append(sum.Lines, SummaryLine{
			ProductID:      it.ProductID,
			SKU:            product.SKU,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       it.Quantity,
			LineTotalCents: lineTotal,
		})
		sum.SubtotalCents += lineTotal
	}

	sum.TaxCents = s.Pricing.Tax(sum.SubtotalCents)
	sum.ShippingCents = s.Pricing.Shipping(sum.SubtotalCents)
	sum.TotalCents = sum.SubtotalCents + sum.TaxCents + sum.ShippingCents
	return sum, nil
}

// TransferSession merges the anonymous session cart into the user cart
// on login. Lines present in both carts sum their quantities and are
// re-validated against inventory; when re-validation fails the user's
// pre-existing quantity wins and the session line is dropped, never
// failing the whole transfer. Lines only in the session cart move over
// unchanged. Calling this on an already-empty session cart is a no-op.
func (s *Service) TransferSession(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" || userID == uuid.Nil {
		return fmt.Errorf("%w: session and user required", ErrValidation)
	}
	l := logging.FromContext(ctx)

	sessionOwner := SessionOwner(sessionID)
	userOwner := UserOwner(userID)

	sessionItems, err := s.Repo.Get(ctx, sessionOwner)
	if err != nil {
		return err
	}
	if len(sessionItems) == 0 {
		return nil
	}

	for _, it := range sessionItems {
		userLine, err := s.Repo.GetLine(ctx, userOwner, it.ProductID)
		switch {
		case err == nil:
			combined := userLine.Quantity + it.Quantity
			if verr := s.Inventory.ValidateAvailability(ctx, it.ProductID, int64(combined)); verr != nil {
				l.Warn("cart_transfer_line_skipped",
					"product_id", it.ProductID, "combined_quantity", combined, "reason", verr.Error())
				continue
			}
			if _, err := s.Repo.SetQuantity(ctx, userOwner, it.ProductID, combined); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := s.Repo.AddQuantity(ctx, userOwner, it.ProductID, it.Quantity); err != nil {
				return err
			}
		default:
			return err
		}
	}

	return s.Repo.Clear(ctx, sessionOwner)
}
