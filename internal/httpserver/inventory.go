package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/models"
	"github.com/mkotelnikov/storefront/internal/transport"
)

type InventoryHTTP struct {
	Svc *inventory.Service
}

func stockStatus(rec *models.InventoryRecord) transport.StockStatusResponse {
	return transport.StockStatusResponse{
		ProductID:         rec.ProductID,
		QuantityAvailable: rec.QuantityAvailable,
		QuantityReserved:  rec.QuantityReserved,
		ReorderLevel:      rec.ReorderLevel,
		InStock:           rec.InStock(),
		LowStock:          rec.LowStock(),
	}
}

func (h *InventoryHTTP) GetStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory.get_stock")

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		l.Warn("get_stock_failed", "status", 400, "reason", "product id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "product id is not a uuid")
	}

	rec, err := h.Svc.Get(ctx, productID)
	if err != nil {
		return respondError(l, "get_stock", err)
	}
	return c.JSON(http.StatusOK, stockStatus(rec))
}

// Adjust handles the four ledger movements, routed by the :op segment.
func (h *InventoryHTTP) Adjust(c echo.Context) error {
	ctx := c.Request().Context()
	op := c.Param("op")
	l := logging.FromContext(ctx).With("handler", "inventory."+op)

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		l.Warn(op+"_failed", "status", 400, "reason", "product id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "product id is not a uuid")
	}

	var req transport.AdjustStockRequest
	if err := c.Bind(&req); err != nil {
		l.Warn(op+"_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var rec *models.InventoryRecord
	switch op {
	case "add":
		rec, err = h.Svc.AddStock(ctx, productID, req.Quantity)
	case "remove":
		rec, err = h.Svc.RemoveStock(ctx, productID, req.Quantity)
	case "reserve":
		rec, err = h.Svc.Reserve(ctx, productID, req.Quantity)
	case "release":
		rec, err = h.Svc.Release(ctx, productID, req.Quantity)
	case "confirm":
		rec, err = h.Svc.Confirm(ctx, productID, req.Quantity)
	default:
		l.Warn("adjust_failed", "status", 404, "reason", "unknown operation", "op", op)
		return echo.NewHTTPError(http.StatusNotFound, "unknown operation")
	}
	if err != nil {
		return respondError(l, op, err)
	}

	l.Info(op+"_success", "product_id", productID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, stockStatus(rec))
}

func (h *InventoryHTTP) Override(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "inventory.override")

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		l.Warn("override_failed", "status", 400, "reason", "product id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "product id is not a uuid")
	}

	var req transport.InventoryOverrideRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("override_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ReorderLevel == nil && req.QuantityAvailable == nil {
		l.Warn("override_failed", "status", 400, "reason", "empty body")
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	var rec *models.InventoryRecord
	if req.ReorderLevel != nil {
		rec, err = h.Svc.SetReorderLevel(ctx, productID, *req.ReorderLevel)
		if err != nil {
			return respondError(l, "override", err)
		}
	}
	if req.QuantityAvailable != nil {
		rec, err = h.Svc.UpdateAvailable(ctx, productID, *req.QuantityAvailable)
		if err != nil {
			return respondError(l, "override", err)
		}
	}

	l.Info("override_success", "product_id", productID)
	return c.JSON(http.StatusOK, stockStatus(rec))
}
