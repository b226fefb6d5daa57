package routes

import (
	"github.com/gin-gonic/gin"

	checkoutControllers "github.com/velmart/storefront-api/controllers/checkout"
	"github.com/velmart/storefront-api/middleware"
)

// SetupCheckoutRoutes registers the checkout endpoint and the gateway
// redirect endpoints. The redirects are public: the gateway sends the
// customer's browser there without our bearer token, and the order reference
// is an opaque token.
func SetupCheckoutRoutes(r *gin.Engine, d Deps) {
	r.POST("/checkout", middleware.ValidateToken,
		checkoutControllers.Checkout(d.DB, d.Orders, d.Gateway, d.Log))

	r.GET("/checkout/success", checkoutControllers.Success(d.Orders, d.Gateway, d.Log))
	r.GET("/checkout/cancel", checkoutControllers.Cancel())
}
