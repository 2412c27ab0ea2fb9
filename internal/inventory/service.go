package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkotelnikov/storefront/internal/kafka"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/models"
	"github.com/mkotelnikov/storefront/internal/notify"
)

var (
	ErrValidation         = errors.New("validation")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOutOfStock         = errors.New("out of stock")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidReservation = errors.New("invalid reservation")
)

type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type Service struct {
	Repo     *GormRepo
	Products ProductReader
	Events   *notify.Registry
	Producer kafka.Publisher
}

func (s *Service) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	return s.Repo.Get(ctx, productID)
}

func (s *Service) AddStock(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	rec, err := s.Repo.AddAvailable(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.AnnounceChange(ctx, rec, "add_stock")
	return rec, nil
}

func (s *Service) RemoveStock(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	rec, err := s.Repo.RemoveAvailable(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.AnnounceChange(ctx, rec, "remove_stock")
	return rec, nil
}

func (s *Service) Reserve(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	rec, err := s.Repo.ReserveStock(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.AnnounceChange(ctx, rec, "reserve")
	return rec, nil
}

func (s *Service) Release(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	rec, err := s.Repo.ReleaseStock(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.AnnounceChange(ctx, rec, "release")
	return rec, nil
}

func (s *Service) Confirm(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	rec, err := s.Repo.ConsumeReserved(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.AnnounceChange(ctx, rec, "confirm")
	return rec, nil
}

func (s *Service) SetReorderLevel(ctx context.Context, productID uuid.UUID, level int64) (*models.InventoryRecord, error) {
	if level < 0 {
		return nil, fmt.Errorf("%w: reorder level must be >= 0", ErrValidation)
	}
	return s.Repo.SetReorderLevel(ctx, productID, level)
}

// UpdateAvailable is the admin override; it bypasses the arithmetic
// guards but still refuses negative counters.
func (s *Service) UpdateAvailable(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}
	rec, err := s.Repo.SetAvailable(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	s.AnnounceChange(ctx, rec, "update_available")
	return rec, nil
}

// ValidateAvailability is the read-only check carts use; it does not
// reserve anything.
func (s *Service) ValidateAvailability(ctx context.Context, productID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	product, err := s.Products.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if !product.IsActive {
		return fmt.Errorf("%w: product %s", ErrProductUnavailable, productID)
	}

	rec, err := s.Repo.Get(ctx, productID)
	if err != nil {
		return err
	}
	if rec.QuantityAvailable == 0 {
		return fmt.Errorf("%w: product %s", ErrOutOfStock, productID)
	}
	if qty > rec.QuantityAvailable {
		return fmt.Errorf("%w: product %s has %d available, requested %d",
			ErrInsufficientStock, productID, rec.QuantityAvailable, qty)
	}
	return nil
}

// AnnounceChange emits a ledger change to the durable stream and, when
// the record dips to its reorder level, alerts connected admins.
// Exported so callers that mutate the ledger inside their own
// transaction (order transitions) can publish after commit. Delivery
// failures are logged and never surfaced to the caller.
func (s *Service) AnnounceChange(ctx context.Context, rec *models.InventoryRecord, op string) {
	l := logging.FromContext(ctx)

	payload := map[string]any{
		"product_id":         rec.ProductID,
		"operation":          op,
		"quantity_available": rec.QuantityAvailable,
		"quantity_reserved":  rec.QuantityReserved,
	}

	if s.Producer != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Producer.PublishEvent(pubCtx, kafka.TopicInventoryAdjusted, rec.ProductID.String(), payload); err != nil {
			l.Error("inventory_event_publish_failed", "op", op, "product_id", rec.ProductID, "error", err)
		}
		if rec.LowStock() {
			if err := s.Producer.PublishEvent(pubCtx, kafka.TopicInventoryLowStock, rec.ProductID.String(), payload); err != nil {
				l.Error("low_stock_event_publish_failed", "product_id", rec.ProductID, "error", err)
			}
		}
	}

	if s.Events != nil {
		s.Events.Publish(notify.Admins, notify.EventInventoryChanged, payload)
		if rec.LowStock() {
			s.Events.Publish(notify.Admins, notify.EventLowStockAlert, map[string]any{
				"product_id":         rec.ProductID,
				"quantity_available": rec.QuantityAvailable,
				"reorder_level":      rec.ReorderLevel,
			})
		}
	}
}
