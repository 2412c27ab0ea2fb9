package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/cart"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/transport"
)

type CartHTTP struct {
	Svc       *cart.Service
	JWTSecret []byte
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	items, err := h.Svc.Get(ctx, cartOwner(c, h.JWTSecret))
	if err != nil {
		return respondError(l, "get_cart", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Add(ctx, cartOwner(c, h.JWTSecret), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(l, "add_to_cart", err)
	}

	l.Info("add_to_cart_success", "product_id", req.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) UpdateLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		l.Warn("update_cart_failed", "status", 400, "reason", "product id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "product id is not a uuid")
	}

	var req transport.UpdateCartLineRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_cart_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Update(ctx, cartOwner(c, h.JWTSecret), productID, req.Quantity)
	if err != nil {
		return respondError(l, "update_cart", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		l.Warn("remove_cart_line_failed", "status", 400, "reason", "product id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "product id is not a uuid")
	}

	if err := h.Svc.Remove(ctx, cartOwner(c, h.JWTSecret), productID); err != nil {
		return respondError(l, "remove_cart_line", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted_item": productID})
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	if err := h.Svc.Clear(ctx, cartOwner(c, h.JWTSecret)); err != nil {
		return respondError(l, "clear_cart", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.summary")

	sum, err := h.Svc.Summary(ctx, cartOwner(c, h.JWTSecret))
	if err != nil {
		return respondError(l, "cart_summary", err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Transfer merges the anonymous session cart into the freshly
// logged-in user's cart; it requires both a valid token and the
// session cookie.
func (h *CartHTTP) Transfer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.transfer")

	userID, _, err := userFromToken(c, h.JWTSecret)
	if err != nil {
		return err
	}
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		l.Warn("cart_transfer_failed", "status", 400, "reason", "missing session cookie")
		return echo.NewHTTPError(http.StatusBadRequest, "missing session cookie")
	}

	if err := h.Svc.TransferSession(ctx, cookie.Value, userID); err != nil {
		return respondError(l, "cart_transfer", err)
	}

	l.Info("cart_transfer_success", "user_id", userID)
	return c.NoContent(http.StatusNoContent)
}
