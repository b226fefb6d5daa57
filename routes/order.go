package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/velmart/storefront-api/controllers/order"
	"github.com/velmart/storefront-api/middleware"
)

// SetupOrderRoutes registers the user-facing order endpoints.
func SetupOrderRoutes(r *gin.Engine, d Deps) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		orders.GET("", orderControllers.ListUserOrders(d.Orders))
		orders.GET("/:reference", orderControllers.GetOrder(d.Orders))
		orders.POST("/:reference/cancel", orderControllers.CancelOrder(d.Orders))
	}
}
