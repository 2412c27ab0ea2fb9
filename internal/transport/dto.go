package transport

import (
	"github.com/google/uuid"

	"github.com/mkotelnikov/storefront/internal/models"
)

type CreateProductRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int64  `json:"initial_stock"`
	ReorderLevel int64  `json:"reorder_level"`
}

type AdjustStockRequest struct {
	Quantity int64 `json:"quantity"`
}

type InventoryOverrideRequest struct {
	ReorderLevel      *int64 `json:"reorder_level,omitempty"`
	QuantityAvailable *int64 `json:"quantity_available,omitempty"`
}

type StockStatusResponse struct {
	ProductID         uuid.UUID `json:"product_id"`
	QuantityAvailable int64     `json:"quantity_available"`
	QuantityReserved  int64     `json:"quantity_reserved"`
	ReorderLevel      int64     `json:"reorder_level"`
	InStock           bool      `json:"in_stock"`
	LowStock          bool      `json:"low_stock"`
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  uint      `json:"quantity"`
}

type UpdateCartLineRequest struct {
	Quantity uint `json:"quantity"`
}

type CreateOrderRequest struct {
	ShippingAddressID uuid.UUID  `json:"shipping_address_id"`
	BillingAddressID  *uuid.UUID `json:"billing_address_id,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
	Notes  string             `json:"notes,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type OrderStatusResponse struct {
	OrderID uuid.UUID          `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}
