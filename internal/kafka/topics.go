package kafka

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicInventoryAdjusted  = "inventory.adjusted"
	TopicInventoryLowStock  = "inventory.low_stock"
)
