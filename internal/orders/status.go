package orders

import (
	"fmt"

	"github.com/mkotelnikov/storefront/internal/models"
)

// Canonical transition tables, permission-scoped. The admin table is
// the full graph; customers may only cancel, and only before the order
// moves past CONFIRMED.
var adminNext = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.OrderStatusPending:    {models.OrderStatusConfirmed: true, models.OrderStatusCancelled: true},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing: true, models.OrderStatusCancelled: true},
	models.OrderStatusProcessing: {models.OrderStatusShipped: true, models.OrderStatusCancelled: true},
	models.OrderStatusShipped:    {models.OrderStatusDelivered: true, models.OrderStatusCancelled: true},
	models.OrderStatusDelivered:  {models.OrderStatusRefunded: true},
	models.OrderStatusCancelled:  {models.OrderStatusRefunded: true},
	models.OrderStatusRefunded:   {},
}

var customerNext = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.OrderStatusPending:   {models.OrderStatusCancelled: true},
	models.OrderStatusConfirmed: {models.OrderStatusCancelled: true},
}

func CanTransition(from, to models.OrderStatus, admin bool) bool {
	if admin {
		return adminNext[from][to]
	}
	return customerNext[from][to]
}

type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// stillReserved reports whether an order in the given status is still
// holding ledger reservations. Reservations are confirmed on the way
// into SHIPPED, so anything from SHIPPED onward holds none.
func stillReserved(status models.OrderStatus) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing:
		return true
	}
	return false
}
