package productcontroller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/cache"
	"github.com/velmart/storefront-api/models"
)

// GetProducts lists the active catalog with filtering and sorting. Unfiltered
// and per-category listings are served from the redis read-through cache.
func GetProducts(db *gorm.DB, catalog *cache.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := c.Query("search")
		categoryID := c.Query("category_id")
		minPriceStr := c.Query("min_price")
		maxPriceStr := c.Query("max_price")
		sortBy := c.DefaultQuery("sort_by", "created_at")
		sortOrder := strings.ToLower(c.DefaultQuery("order", "desc"))
		if sortOrder != "asc" && sortOrder != "desc" {
			sortOrder = "desc"
		}
		switch sortBy {
		case "created_at", "price", "name":
		default:
			sortBy = "created_at"
		}

		// Only the plain listings are cacheable.
		cacheable := search == "" && minPriceStr == "" && maxPriceStr == "" &&
			sortBy == "created_at" && sortOrder == "desc"
		if cacheable {
			if data := catalog.GetList(c.Request.Context(), categoryID); data != nil {
				c.Data(http.StatusOK, "application/json", data)
				return
			}
		}

		query := db.Model(&models.Product{}).Preload("Category").Where("active = ?", true)

		if search != "" {
			likePattern := "%" + search + "%"
			query = query.Where("name ILIKE ? OR description ILIKE ?", likePattern, likePattern)
		}

		if minPriceStr != "" {
			if mp, err := decimal.NewFromString(minPriceStr); err == nil {
				query = query.Where("price >= ?", mp)
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
				return
			}
		}
		if maxPriceStr != "" {
			if mp, err := decimal.NewFromString(maxPriceStr); err == nil {
				query = query.Where("price <= ?", mp)
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
				return
			}
		}

		if categoryID != "" {
			if cid, err := strconv.ParseUint(categoryID, 10, 64); err == nil {
				query = query.Where("category_id = ?", uint(cid))
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id"})
				return
			}
		}

		var products []models.Product
		if err := query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		if cacheable {
			if data, err := json.Marshal(products); err == nil {
				catalog.SetList(c.Request.Context(), categoryID, data)
			}
		}
		c.JSON(http.StatusOK, products)
	}
}
