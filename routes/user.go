package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/velmart/storefront-api/controllers/cart"
	userControllers "github.com/velmart/storefront-api/controllers/user"
	"github.com/velmart/storefront-api/middleware"
)

// SetupUserRoutes registers the profile and cart endpoints. Requires JWT
// middleware.
func SetupUserRoutes(r *gin.Engine, d Deps) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		userGroup.GET("", userControllers.GetUser(d.DB))
		userGroup.PUT("", userControllers.UpdateUser(d.DB))
	}

	cartGroup := r.Group("/cart")
	cartGroup.Use(middleware.ValidateToken)
	{
		cartGroup.GET("", cartControllers.GetCart(d.Carts))
		cartGroup.POST("/items", cartControllers.AddCartItem(d.Carts))
		cartGroup.PUT("/items/:product_id", cartControllers.UpdateCartItem(d.Carts))
		cartGroup.DELETE("/items/:product_id", cartControllers.DeleteCartItem(d.Carts))
		cartGroup.DELETE("", cartControllers.ClearCart(d.Carts))
	}
}
