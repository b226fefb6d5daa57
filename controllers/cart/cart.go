package cartControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velmart/storefront-api/middleware"
	"github.com/velmart/storefront-api/services"
)

type CartItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type QuantityInput struct {
	Quantity int `json:"quantity"`
}

// GET /cart
func GetCart(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		cart, err := carts.GetCart(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": cart.Items, "total": cart.Total()})
	}
}

// POST /cart/items
func AddCartItem(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		item, err := carts.AddItem(c.Request.Context(), userID, input.ProductID, input.Quantity)
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not exist"})
		case errors.Is(err, services.ErrProductUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "Product is unavailable in the requested quantity"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		default:
			c.JSON(http.StatusCreated, item)
		}
	}
}

// PUT /cart/items/:product_id
func UpdateCartItem(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		productID, ok := parseProductID(c)
		if !ok {
			return
		}

		var input QuantityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		err := carts.UpdateItemQuantity(c.Request.Context(), userID, productID, input.Quantity)
		switch {
		case errors.Is(err, services.ErrCartItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		case errors.Is(err, services.ErrProductNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not exist"})
		case errors.Is(err, services.ErrProductUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "Product is unavailable in the requested quantity"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
		default:
			c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
		}
	}
}

// DELETE /cart/items/:product_id
func DeleteCartItem(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		productID, ok := parseProductID(c)
		if !ok {
			return
		}

		err := carts.RemoveItem(c.Request.Context(), userID, productID)
		switch {
		case errors.Is(err, services.ErrCartItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		default:
			c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
		}
	}
}

// DELETE /cart
func ClearCart(carts *services.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err := carts.ClearCart(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

func parseProductID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return 0, false
	}
	return uint(id64), true
}
