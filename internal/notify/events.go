package notify

import "time"

const (
	EventConnected          = "connected"
	EventNewOrder           = "new_order"
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventInventoryChanged   = "inventory_changed"
	EventLowStockAlert      = "low_stock_alert"
)

type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
