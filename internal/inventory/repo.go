package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/models"
)

// GormRepo serializes ledger mutations per product with single-row
// conditional updates: the precondition lives in the WHERE clause and a
// zero RowsAffected means another writer got there first or the
// precondition failed. Counters can never go negative.
type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Get(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := r.DB.WithContext(ctx).First(&rec, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepo) Create(ctx context.Context, rec *models.InventoryRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *GormRepo) AddAvailable(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ?", productID).
		UpdateColumns(map[string]any{
			"quantity_available": gorm.Expr("quantity_available + ?", qty),
			"last_updated":       time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
	}
	return r.Get(ctx, productID)
}

func (r *GormRepo) RemoveAvailable(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND quantity_available >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"quantity_available": gorm.Expr("quantity_available - ?", qty),
			"last_updated":       time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.failedPrecondition(ctx, productID, qty, ErrInsufficientStock)
	}
	return r.Get(ctx, productID)
}

// ReserveStock moves qty from available to reserved in one statement.
func (r *GormRepo) ReserveStock(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND quantity_available >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"quantity_available": gorm.Expr("quantity_available - ?", qty),
			"quantity_reserved":  gorm.Expr("quantity_reserved + ?", qty),
			"last_updated":       time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.failedPrecondition(ctx, productID, qty, ErrInsufficientStock)
	}
	return r.Get(ctx, productID)
}

// ReleaseStock moves qty from reserved back to available.
func (r *GormRepo) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND quantity_reserved >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"quantity_available": gorm.Expr("quantity_available + ?", qty),
			"quantity_reserved":  gorm.Expr("quantity_reserved - ?", qty),
			"last_updated":       time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.failedPrecondition(ctx, productID, qty, ErrInvalidReservation)
	}
	return r.Get(ctx, productID)
}

// ConsumeReserved commits a reservation to a completed sale; the
// quantity leaves tracked stock and never returns to available.
func (r *GormRepo) ConsumeReserved(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND quantity_reserved >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"quantity_reserved": gorm.Expr("quantity_reserved - ?", qty),
			"last_updated":      time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.failedPrecondition(ctx, productID, qty, ErrInvalidReservation)
	}
	return r.Get(ctx, productID)
}

func (r *GormRepo) SetReorderLevel(ctx context.Context, productID uuid.UUID, level int64) (*models.InventoryRecord, error) {
	return r.override(ctx, productID, map[string]any{"reorder_level": level})
}

func (r *GormRepo) SetAvailable(ctx context.Context, productID uuid.UUID, qty int64) (*models.InventoryRecord, error) {
	return r.override(ctx, productID, map[string]any{"quantity_available": qty})
}

func (r *GormRepo) override(ctx context.Context, productID uuid.UUID, changes map[string]any) (*models.InventoryRecord, error) {
	changes["last_updated"] = time.Now().UTC()
	res := r.DB.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ?", productID).
		UpdateColumns(changes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
	}
	return r.Get(ctx, productID)
}

// failedPrecondition tells a missing row apart from a guard that did
// not hold, and reports current counters in the latter case.
func (r *GormRepo) failedPrecondition(ctx context.Context, productID uuid.UUID, qty int64, precondition error) error {
	rec, err := r.Get(ctx, productID)
	if err != nil {
		return err
	}
	switch {
	case errors.Is(precondition, ErrInsufficientStock):
		return fmt.Errorf("%w: product %s has %d available, requested %d",
			ErrInsufficientStock, productID, rec.QuantityAvailable, qty)
	default:
		return fmt.Errorf("%w: product %s has %d reserved, requested %d",
			ErrInvalidReservation, productID, rec.QuantityReserved, qty)
	}
}
