package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/cache"
	"github.com/velmart/storefront-api/payment"
	"github.com/velmart/storefront-api/services"
)

// Deps carries the shared collaborators the route groups wire into their
// handlers.
type Deps struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Orders  *services.OrderService
	Carts   *services.CartService
	Mailer  *services.Mailer
	Gateway payment.Gateway
	Catalog *cache.Catalog
}

// SetupRoutes is the single entry-point that wires up all route groups.
func SetupRoutes(r *gin.Engine, d Deps) {
	// Public auth routes (no middleware)
	SetupAuthRoutes(r, d)

	// Public catalog routes
	SetupCatalogRoutes(r, d)

	// User profile + cart routes (JWT-protected)
	SetupUserRoutes(r, d)

	// Checkout + gateway redirect endpoints
	SetupCheckoutRoutes(r, d)

	// Order routes (user-facing, JWT-protected)
	SetupOrderRoutes(r, d)

	// Admin routes (API-key-protected)
	SetupAdminRoutes(r, d)
}
