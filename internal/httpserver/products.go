package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mkotelnikov/storefront/internal/catalog"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/models"
	"github.com/mkotelnikov/storefront/internal/transport"
)

type CatalogHTTP struct {
	Svc *catalog.Service
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_product_failed", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return respondError(l, "get_product", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	product := &models.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	}
	if err := h.Svc.CreateProduct(ctx, product, req.InitialStock, req.ReorderLevel); err != nil {
		return respondError(l, "create_product", err)
	}

	l.Info("create_product_success", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHTTP) DeactivateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.deactivate_product")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("deactivate_product_failed", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	if err := h.Svc.DeactivateProduct(ctx, id); err != nil {
		return respondError(l, "deactivate_product", err)
	}

	l.Info("deactivate_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
