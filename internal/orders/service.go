package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/cache"
	"github.com/mkotelnikov/storefront/internal/cart"
	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/kafka"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/models"
	"github.com/mkotelnikov/storefront/internal/notify"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const maxNumberAttempts = 5

// Actor is who is asking for a change. A nil-ID admin actor represents
// a system-initiated change.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type Service struct {
	Repo         *GormRepo
	Cart         *cart.Service
	Inventory    *inventory.Service
	Products     ProductReader
	Pricing      cart.PricingConfig
	StatusCache  *cache.StatusCache
	Producer     kafka.Publisher
	Events       *notify.Registry
	AttentionAge time.Duration
}

type CreateInput struct {
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	Notes             string
}

// Create walks the user's cart, reserves inventory line by line and
// persists order+items+initial history as one unit. Each per-product
// reservation is its own serialized ledger operation, so a failure
// part-way through compensates by releasing everything reserved so far:
// the call is all-or-nothing from the caller's perspective.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user required", ErrValidation)
	}
	if in.ShippingAddressID == uuid.Nil {
		return nil, fmt.Errorf("%w: shipping_address_id required", ErrValidation)
	}
	l := logging.FromContext(ctx)

	owner := cart.UserOwner(userID)
	lines, err := s.Cart.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	var items []models.OrderItem
	releaseReserved := func() {
		for _, it := range items {
			if _, rerr := s.Inventory.Release(ctx, it.ProductID, int64(it.Quantity)); rerr != nil {
				l.Error("order_create_release_failed", "product_id", it.ProductID, "quantity", it.Quantity, "error", rerr)
			}
		}
	}

	var subtotal int64
	for _, line := range lines {
		product, perr := s.Products.GetProduct(ctx, line.ProductID)
		if perr != nil {
			releaseReserved()
			return nil, fmt.Errorf("product %s: %w", line.ProductID, ErrNotFound)
		}
		if !product.IsActive {
			releaseReserved()
			return nil, fmt.Errorf("%w: product %s", inventory.ErrProductUnavailable, line.ProductID)
		}

		if _, rerr := s.Inventory.Reserve(ctx, line.ProductID, int64(line.Quantity)); rerr != nil {
			releaseReserved()
			return nil, rerr
		}

		lineTotal := product.PriceCents * int64(line.Quantity)
		items = append(items, models.OrderItem{
			ProductID:       line.ProductID,
			SKU:             product.SKU,
			Name:            product.Name,
			UnitPriceCents:  product.PriceCents,
			Quantity:        line.Quantity,
			TotalPriceCents: lineTotal,
		})
		subtotal += lineTotal
	}

	tax := s.Pricing.Tax(subtotal)
	shipping := s.Pricing.Shipping(subtotal)

	order := &models.Order{
		UserID:            userID,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		SubtotalCents:     subtotal,
		TaxCents:          tax,
		ShippingCents:     shipping,
		TotalCents:        subtotal + tax + shipping,
		ShippingAddressID: in.ShippingAddressID,
		BillingAddressID:  in.BillingAddressID,
		Notes:             in.Notes,
		Items:             items,
	}

	changedBy := userID
	history := &models.OrderStatusHistory{
		NewStatus: models.OrderStatusPending,
		ChangedBy: &changedBy,
	}

	var cerr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order.OrderNumber = newOrderNumber(time.Now().UTC())
		cerr = s.Repo.CreateOrder(ctx, order, history)
		if cerr == nil || !errors.Is(cerr, gorm.ErrDuplicatedKey) {
			break
		}
		l.Warn("order_number_collision", "order_number", order.OrderNumber, "attempt", attempt+1)
	}
	if cerr != nil {
		releaseReserved()
		return nil, cerr
	}

	if err := s.Cart.Clear(ctx, owner); err != nil {
		l.Error("order_create_cart_clear_failed", "user_id", userID, "error", err)
	}
	s.StatusCache.Set(ctx, order.ID, order.Status)

	s.publish(ctx, kafka.TopicOrderCreated, order.ID.String(), map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"total_cents":  order.TotalCents,
		"status":       order.Status,
	})
	if s.Events != nil {
		s.Events.Publish(notify.Admins, notify.EventNewOrder, map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"user_id":      order.UserID,
			"total_cents":  order.TotalCents,
		})
		s.Events.Publish(notify.User(userID), notify.EventOrderCreated, map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
		})
	}

	return order, nil
}

// UpdateStatus validates the transition against the actor's table,
// applies ledger side effects (confirm on the way into SHIPPED, release
// on cancellation while still reserved), flips payment status on refund
// paths and appends the history row.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus, actor Actor, notes string) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && order.UserID != actor.ID {
		return nil, fmt.Errorf("%w: order %s", ErrPermissionDenied, orderID)
	}

	from := order.Status
	if !CanTransition(from, newStatus, true) {
		return nil, &InvalidTransitionError{From: from, To: newStatus}
	}
	if !actor.Admin && !CanTransition(from, newStatus, false) {
		return nil, fmt.Errorf("%w: transition %s -> %s requires admin", ErrPermissionDenied, from, newStatus)
	}

	var payment *models.PaymentStatus
	var ledgerOp string
	switch newStatus {
	case models.OrderStatusCancelled:
		if stillReserved(from) {
			ledgerOp = "release"
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			refunded := models.PaymentStatusRefunded
			payment = &refunded
		}
	case models.OrderStatusShipped:
		ledgerOp = "confirm"
	case models.OrderStatusRefunded:
		if from == models.OrderStatusDelivered && !order.CanBeRefunded() {
			return nil, fmt.Errorf("%w: order %s is not refundable", ErrValidation, orderID)
		}
		refunded := models.PaymentStatusRefunded
		payment = &refunded
	}

	history := &models.OrderStatusHistory{
		PreviousStatus: &from,
		NewStatus:      newStatus,
		Notes:          notes,
	}
	if actor.ID != uuid.Nil {
		id := actor.ID
		history.ChangedBy = &id
	}

	// Ledger mutations ride in the same transaction as the status CAS
	// and only run once the CAS has won. A lost race or a failed ledger
	// precondition rolls the whole transition back, so the order keeps
	// its old status and no counter moves.
	var changed []*models.InventoryRecord
	var effects func(tx *gorm.DB) error
	if ledgerOp != "" {
		effects = func(tx *gorm.DB) error {
			ledger := &inventory.GormRepo{DB: tx}
			for _, it := range order.Items {
				var rec *models.InventoryRecord
				var lerr error
				switch ledgerOp {
				case "release":
					rec, lerr = ledger.ReleaseStock(ctx, it.ProductID, int64(it.Quantity))
				case "confirm":
					rec, lerr = ledger.ConsumeReserved(ctx, it.ProductID, int64(it.Quantity))
				}
				if lerr != nil {
					return lerr
				}
				changed = append(changed, rec)
			}
			return nil
		}
	}

	if err := s.Repo.ApplyTransition(ctx, orderID, from, newStatus, payment, history, effects); err != nil {
		if errors.Is(err, ErrConflict) {
			if cur, gerr := s.Repo.GetOrder(ctx, orderID); gerr == nil {
				return nil, &InvalidTransitionError{From: cur.Status, To: newStatus}
			}
		}
		return nil, err
	}

	for _, rec := range changed {
		s.Inventory.AnnounceChange(ctx, rec, ledgerOp)
	}

	s.StatusCache.Set(ctx, orderID, newStatus)
	s.publish(ctx, kafka.TopicOrderStatusChanged, orderID.String(), map[string]any{
		"order_id":        orderID,
		"previous_status": from,
		"new_status":      newStatus,
	})
	if s.Events != nil {
		s.Events.Publish(notify.User(order.UserID), notify.EventOrderStatusChanged, map[string]any{
			"order_id":        orderID,
			"order_number":    order.OrderNumber,
			"previous_status": from,
			"new_status":      newStatus,
		})
	}

	return s.Repo.GetOrder(ctx, orderID)
}

// Cancel is a convenience wrapper over UpdateStatus; the customer table
// already restricts non-admin cancellation to PENDING|CONFIRMED.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*models.Order, error) {
	return s.UpdateStatus(ctx, orderID, models.OrderStatusCancelled, actor, reason)
}

// MarkPaid records an external payment confirmation.
func (s *Service) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	return s.Repo.SetPaymentStatus(ctx, orderID, models.PaymentStatusPaid)
}

func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.Repo.GetOrder(ctx, orderID)
}

func (s *Service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.Repo.GetHistory(ctx, orderID)
}

// Status is cache-first; a miss falls through to the store and
// repopulates the cache.
func (s *Service) Status(ctx context.Context, orderID uuid.UUID) (models.OrderStatus, error) {
	if status, ok := s.StatusCache.Get(ctx, orderID); ok {
		return status, nil
	}
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	s.StatusCache.Set(ctx, orderID, order.Status)
	return order.Status, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, status *models.OrderStatus, limit, offset int) ([]models.Order, error) {
	return s.Repo.ListByUser(ctx, userID, status, limit, offset)
}

func (s *Service) ListCancellable(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListCancellable(ctx, userID)
}

func (s *Service) ListRefundable(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListRefundable(ctx, userID)
}

func (s *Service) ListRequiringAttention(ctx context.Context) ([]models.Order, error) {
	age := s.AttentionAge
	if age <= 0 {
		age = 48 * time.Hour
	}
	return s.Repo.ListRequiringAttention(ctx, time.Now().UTC().Add(-age))
}

func (s *Service) publish(ctx context.Context, topic, key string, event any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("order_event_publish_failed", "topic", topic, "key", key, "error", err)
	}
}
