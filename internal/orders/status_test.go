package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkotelnikov/storefront/internal/models"
)

func TestAdminTransitions(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		ok       bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusShipped, false},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		{models.OrderStatusConfirmed, models.OrderStatusProcessing, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusProcessing, models.OrderStatusShipped, true},
		{models.OrderStatusProcessing, models.OrderStatusCancelled, true},
		{models.OrderStatusProcessing, models.OrderStatusConfirmed, false},
		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusShipped, models.OrderStatusCancelled, true},
		{models.OrderStatusShipped, models.OrderStatusProcessing, false},
		{models.OrderStatusDelivered, models.OrderStatusRefunded, true},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusRefunded, true},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusRefunded, models.OrderStatusPending, false},
		{models.OrderStatusRefunded, models.OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to, true),
			"admin %s -> %s", tc.from, tc.to)
	}
}

func TestCustomerTransitions(t *testing.T) {
	// Customers may only cancel, and only before PROCESSING.
	require.True(t, CanTransition(models.OrderStatusPending, models.OrderStatusCancelled, false))
	require.True(t, CanTransition(models.OrderStatusConfirmed, models.OrderStatusCancelled, false))

	require.False(t, CanTransition(models.OrderStatusProcessing, models.OrderStatusCancelled, false))
	require.False(t, CanTransition(models.OrderStatusShipped, models.OrderStatusCancelled, false))
	require.False(t, CanTransition(models.OrderStatusPending, models.OrderStatusConfirmed, false))
	require.False(t, CanTransition(models.OrderStatusShipped, models.OrderStatusDelivered, false))
	require.False(t, CanTransition(models.OrderStatusDelivered, models.OrderStatusRefunded, false))
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: models.OrderStatusPending, To: models.OrderStatusShipped}
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.False(t, errors.Is(err, ErrConflict))
	require.Contains(t, err.Error(), "PENDING")
	require.Contains(t, err.Error(), "SHIPPED")
}

func TestOrderNumberFormat(t *testing.T) {
	now := time.Now().UTC()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := newOrderNumber(now)
		require.Regexp(t, `^ORD-\d{8}-[0-9A-F]{6}$`, n)
		require.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}
