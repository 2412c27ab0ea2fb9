package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/models"
	"github.com/mkotelnikov/storefront/internal/orders"
	"github.com/mkotelnikov/storefront/internal/transport"
	"github.com/mkotelnikov/storefront/internal/util"
)

type OrderHTTP struct {
	Svc *orders.Service
}

func (h *OrderHTTP) actor(c echo.Context) orders.Actor {
	return orders.Actor{ID: currentUser(c), Admin: isAdmin(c)}
}

func orderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "order id is not a uuid")
	}
	return id, nil
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.create")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Create(ctx, currentUser(c), orders.CreateInput{
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		Notes:             req.Notes,
	})
	if err != nil {
		return respondError(l, "create_order", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "order_number", order.OrderNumber)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	var status *models.OrderStatus
	if raw := c.QueryParam("status"); raw != "" {
		st := models.OrderStatus(raw)
		status = &st
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("page_size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	list, err := h.Svc.ListByUser(ctx, currentUser(c), status, limit, offset)
	if err != nil {
		return respondError(l, "list_orders", err)
	}
	return c.JSON(http.StatusOK, list)
}

// fetchOwned loads the order and rejects callers who neither own it nor
// hold the admin role. Non-owners get a 404, not a 403, so the response
// does not reveal which order ids exist.
func (h *OrderHTTP) fetchOwned(c echo.Context) (*models.Order, error) {
	id, err := orderID(c)
	if err != nil {
		return nil, err
	}
	order, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if !isAdmin(c) && order.UserID != currentUser(c) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return order, nil
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "orders.get")

	order, err := h.fetchOwned(c)
	if err != nil {
		return respondError(l, "get_order", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) GetHistory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.history")

	order, err := h.fetchOwned(c)
	if err != nil {
		return respondError(l, "get_order_history", err)
	}
	history, err := h.Svc.History(ctx, order.ID)
	if err != nil {
		return respondError(l, "get_order_history", err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *OrderHTTP) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.status")

	order, err := h.fetchOwned(c)
	if err != nil {
		return respondError(l, "get_order_status", err)
	}
	status, err := h.Svc.Status(ctx, order.ID)
	if err != nil {
		return respondError(l, "get_order_status", err)
	}
	return c.JSON(http.StatusOK, transport.OrderStatusResponse{OrderID: order.ID, Status: status})
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.cancel")

	// Ownership check first, so non-owners see the same 404 as on GET.
	order, err := h.fetchOwned(c)
	if err != nil {
		return respondError(l, "cancel_order", err)
	}
	var req transport.CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("cancel_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cancelled, err := h.Svc.Cancel(ctx, order.ID, req.Reason, h.actor(c))
	if err != nil {
		return respondError(l, "cancel_order", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, cancelled)
}

func (h *OrderHTTP) ListCancellable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.cancellable")

	list, err := h.Svc.ListCancellable(ctx, currentUser(c))
	if err != nil {
		return respondError(l, "list_cancellable", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHTTP) ListRefundable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.refundable")

	list, err := h.Svc.ListRefundable(ctx, currentUser(c))
	if err != nil {
		return respondError(l, "list_refundable", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_status")

	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_order_status_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Status == "" {
		l.Warn("update_order_status_failed", "status", 400, "reason", "status required")
		return echo.NewHTTPError(http.StatusBadRequest, "status required")
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req.Status, h.actor(c), req.Notes)
	if err != nil {
		return respondError(l, "update_order_status", err)
	}

	l.Info("update_order_status_success", "order_id", id, "new_status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) MarkPaid(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.mark_paid")

	id, err := orderID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.MarkPaid(ctx, id); err != nil {
		return respondError(l, "mark_order_paid", err)
	}

	l.Info("mark_order_paid_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHTTP) RequiringAttention(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.attention")

	list, err := h.Svc.ListRequiringAttention(ctx)
	if err != nil {
		return respondError(l, "list_requiring_attention", err)
	}
	return c.JSON(http.StatusOK, list)
}
