package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID `gorm:"primaryKey"            json:"id"`
	SKU         string    `gorm:"uniqueIndex;not null"  json:"sku"`
	Name        string    `gorm:"not null"              json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `gorm:"not null"              json:"price_cents"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string { return "products" }

type InventoryRecord struct {
	ID                uuid.UUID `gorm:"primaryKey"                                       json:"id"`
	ProductID         uuid.UUID `gorm:"uniqueIndex;not null"                             json:"product_id"`
	QuantityAvailable int64     `gorm:"not null;default:0;check:quantity_available >= 0" json:"quantity_available"`
	QuantityReserved  int64     `gorm:"not null;default:0;check:quantity_reserved >= 0"  json:"quantity_reserved"`
	ReorderLevel      int64     `gorm:"not null;default:0"                               json:"reorder_level"`
	LastUpdated       time.Time `gorm:"not null"                                         json:"last_updated"`
}

func (r *InventoryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = time.Now().UTC()
	}
	return nil
}

func (InventoryRecord) TableName() string { return "inventory_records" }

func (r *InventoryRecord) InStock() bool { return r.QuantityAvailable > 0 }

func (r *InventoryRecord) LowStock() bool { return r.QuantityAvailable <= r.ReorderLevel }

// A cart line belongs to exactly one owner: a registered user or an
// anonymous session, never both.
type CartItem struct {
	ID        uuid.UUID  `gorm:"primaryKey"                                   json:"id"`
	UserID    *uuid.UUID `gorm:"uniqueIndex:idx_cart_owner_product"           json:"user_id,omitempty"`
	SessionID *string    `gorm:"uniqueIndex:idx_cart_owner_product"           json:"session_id,omitempty"`
	ProductID uuid.UUID  `gorm:"uniqueIndex:idx_cart_owner_product;not null"  json:"product_id"`
	Quantity  uint       `gorm:"not null;default:1;check:quantity > 0"        json:"quantity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string { return "cart_items" }

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Order struct {
	ID                uuid.UUID     `gorm:"primaryKey"           json:"id"`
	OrderNumber       string        `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID            uuid.UUID     `gorm:"index;not null"       json:"user_id"`
	Status            OrderStatus   `gorm:"not null"             json:"status"`
	PaymentStatus     PaymentStatus `gorm:"not null"             json:"payment_status"`
	SubtotalCents     int64         `gorm:"not null"             json:"subtotal_cents"`
	TaxCents          int64         `gorm:"not null"             json:"tax_cents"`
	ShippingCents     int64         `gorm:"not null"             json:"shipping_cents"`
	TotalCents        int64         `gorm:"not null"             json:"total_cents"`
	ShippingAddressID uuid.UUID     `gorm:"not null"             json:"shipping_address_id"`
	BillingAddressID  *uuid.UUID    `json:"billing_address_id,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	Items             []OrderItem   `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string { return "orders" }

func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

func (o *Order) CanBeRefunded() bool {
	return o.Status == OrderStatusDelivered && o.PaymentStatus == PaymentStatusPaid
}

// OrderItem is a snapshot of the product at order time; later catalog
// changes never touch it.
type OrderItem struct {
	ID              uuid.UUID `gorm:"primaryKey"     json:"id"`
	OrderID         uuid.UUID `gorm:"index;not null" json:"order_id"`
	ProductID       uuid.UUID `gorm:"not null"       json:"product_id"`
	SKU             string    `gorm:"not null"       json:"sku"`
	Name            string    `gorm:"not null"       json:"name"`
	UnitPriceCents  int64     `gorm:"not null"       json:"unit_price_cents"`
	Quantity        uint      `gorm:"not null;check:quantity > 0" json:"quantity"`
	TotalPriceCents int64     `gorm:"not null"       json:"total_price_cents"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (OrderItem) TableName() string { return "order_items" }

// OrderStatusHistory rows are append-only. ChangedBy is nil for
// system-initiated changes.
type OrderStatusHistory struct {
	ID             uuid.UUID    `gorm:"primaryKey"     json:"id"`
	OrderID        uuid.UUID    `gorm:"index;not null" json:"order_id"`
	PreviousStatus *OrderStatus `json:"previous_status,omitempty"`
	NewStatus      OrderStatus  `gorm:"not null"       json:"new_status"`
	ChangedBy      *uuid.UUID   `json:"changed_by,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
