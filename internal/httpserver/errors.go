package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/cart"
	"github.com/mkotelnikov/storefront/internal/catalog"
	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/orders"
)

// respondError maps domain sentinels to HTTP statuses and logs in the
// handler's voice: Warn for client errors, Error for the rest.
func respondError(l *slog.Logger, op string, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		l.Warn(op+"_failed", "status", httpErr.Code, "error", err)
		return httpErr
	}

	var transition *orders.InvalidTransitionError

	switch {
	case errors.Is(err, inventory.ErrValidation),
		errors.Is(err, cart.ErrValidation),
		errors.Is(err, orders.ErrValidation),
		errors.Is(err, catalog.ErrValidation):
		l.Warn(op+"_failed", "status", 400, "reason", "invalid request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		l.Warn(op+"_failed", "status", 404, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, orders.ErrPermissionDenied):
		l.Warn(op+"_failed", "status", 403, "reason", "permission denied", "error", err)
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.As(err, &transition),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrOutOfStock),
		errors.Is(err, inventory.ErrProductUnavailable),
		errors.Is(err, inventory.ErrInvalidReservation),
		errors.Is(err, orders.ErrConflict):
		l.Warn(op+"_failed", "status", 409, "reason", "conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	default:
		l.Error(op+"_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
