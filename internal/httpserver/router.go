package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Deps bundles the wired handlers for route registration.
type Deps struct {
	Catalog   *CatalogHTTP
	Inventory *InventoryHTTP
	Cart      *CartHTTP
	Orders    *OrderHTTP
	Events    *EventsHTTP
	JWTSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	health := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	e.GET("/health/live", health)
	e.GET("/health/ready", health)

	api := e.Group("/api/v1")

	api.GET("/products/:id", d.Catalog.GetProduct)
	api.GET("/inventory/:productID", d.Inventory.GetStock)

	admin := api.Group("/admin", requireAdmin(d.JWTSecret))
	admin.POST("/products", d.Catalog.CreateProduct)
	admin.DELETE("/products/:id", d.Catalog.DeactivateProduct)
	admin.POST("/inventory/:productID/:op", d.Inventory.Adjust)
	admin.PATCH("/inventory/:productID", d.Inventory.Override)
	admin.PATCH("/orders/:id/status", d.Orders.UpdateStatus)
	admin.POST("/orders/:id/paid", d.Orders.MarkPaid)
	admin.GET("/orders/attention", d.Orders.RequiringAttention)

	// Cart routes resolve their owner per-request: a logged-in user or
	// an anonymous session cookie, so no auth middleware here.
	cart := api.Group("/cart")
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart)
	cart.DELETE("", d.Cart.ClearCart)
	cart.GET("/summary", d.Cart.Summary)
	cart.POST("/transfer", d.Cart.Transfer)
	cart.PATCH("/:productID", d.Cart.UpdateLine)
	cart.DELETE("/:productID", d.Cart.RemoveLine)

	orders := api.Group("/orders", requireUser(d.JWTSecret))
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("", d.Orders.ListOrders)
	orders.GET("/cancellable", d.Orders.ListCancellable)
	orders.GET("/refundable", d.Orders.ListRefundable)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.GET("/:id/history", d.Orders.GetHistory)
	orders.GET("/:id/status", d.Orders.GetStatus)
	orders.POST("/:id/cancel", d.Orders.CancelOrder)

	api.GET("/events", d.Events.Stream, requireUser(d.JWTSecret))
}
