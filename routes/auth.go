package routes

import (
	"github.com/gin-gonic/gin"

	authControllers "github.com/velmart/storefront-api/controllers/auth"
)

// SetupAuthRoutes registers all "/auth/*" endpoints.
func SetupAuthRoutes(r *gin.Engine, d Deps) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authControllers.Register(d.DB, d.Mailer, d.Log))
		authGroup.POST("/verify", authControllers.Verify(d.DB))
		authGroup.POST("/login", authControllers.Login(d.DB, d.Log))
	}
}
