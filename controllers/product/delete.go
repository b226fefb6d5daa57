package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/cache"
	"github.com/velmart/storefront-api/models"
)

// DeleteProduct soft-deletes a product. Admin only. Existing order lines keep
// their snapshots; carts referencing the product simply fail the next stock
// check.
func DeleteProduct(db *gorm.DB, catalog *cache.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID is required"})
			return
		}

		var product models.Product
		if err := db.First(&product, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		if err := db.Delete(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}

		catalog.Invalidate(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}
