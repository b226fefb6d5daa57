package routes

import (
	"github.com/gin-gonic/gin"

	productcontroller "github.com/velmart/storefront-api/controllers/product"
)

// SetupCatalogRoutes registers the public product browsing endpoints.
func SetupCatalogRoutes(r *gin.Engine, d Deps) {
	r.GET("/products", productcontroller.GetProducts(d.DB, d.Catalog))
	r.GET("/products/:id", productcontroller.GetProductByID(d.DB))
	r.GET("/categories", productcontroller.GetCategories(d.DB))
}
