package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

// CreateOrder persists the order, its items and the initial history row
// as one unit.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order, history *models.OrderStatusHistory) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		history.OrderID = order.ID
		return tx.Create(history).Error
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyTransition flips the status with a compare-and-set on the old
// status, so two racing transitions cannot both win. The history row
// and any ledger side effects run in the same transaction, after the
// CAS: a losing or failing transition rolls everything back and leaves
// no partial mutation behind.
func (r *GormRepo) ApplyTransition(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus, payment *models.PaymentStatus, history *models.OrderStatusHistory, effects func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes := map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		}
		if payment != nil {
			changes["payment_status"] = *payment
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, from).
			UpdateColumns(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if effects != nil {
			if err := effects(tx); err != nil {
				return err
			}
		}

		history.OrderID = orderID
		return tx.Create(history).Error
	})
}

func (r *GormRepo) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, payment models.PaymentStatus) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumns(map[string]any{
			"payment_status": payment,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

func (r *GormRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *models.OrderStatus, limit, offset int) ([]models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListCancellable(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed}).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *GormRepo) ListRefundable(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ? AND payment_status = ?",
			userID, models.OrderStatusDelivered, models.PaymentStatusPaid).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// ListRequiringAttention returns orders stuck in PROCESSING since
// before the cutoff; used for operational alerting.
func (r *GormRepo) ListRequiringAttention(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.OrderStatusProcessing, cutoff).
		Order("updated_at").
		Find(&orders).Error
	return orders, err
}
