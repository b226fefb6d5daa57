package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/velmart/storefront-api/controllers/order"
	productcontroller "github.com/velmart/storefront-api/controllers/product"
	"github.com/velmart/storefront-api/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires API-key
// middleware.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey)
	{
		// Product management
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct(d.DB, d.Catalog))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(d.DB, d.Catalog))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(d.DB, d.Catalog))
		}

		// Category management
		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(d.DB))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategory(d.DB, d.Catalog))
		}

		// Order management
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrders(d.DB))
			orderAdmin.PUT("/:reference/status", orderControllers.UpdateOrderStatus(d.Orders))
			orderAdmin.PUT("/:reference/payment-status", orderControllers.UpdatePaymentStatus(d.Orders))
			orderAdmin.DELETE("/:reference", orderControllers.DeleteOrder(d.DB))
		}
	}
}
