package checkoutControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/middleware"
	"github.com/velmart/storefront-api/models"
	"github.com/velmart/storefront-api/payment"
	"github.com/velmart/storefront-api/services"
)

// CheckoutRequest is the typed checkout form. Addresses are optional; blank
// values fall back to the user's stored defaults inside the workflow.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`
	PaymentMethod   string `json:"payment_method"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const maxAddressLen = 255

// Validate returns the list of field errors, empty when the request is valid.
// Validation runs before the workflow is ever invoked.
func (r *CheckoutRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.ShippingAddress) > maxAddressLen {
		errs = append(errs, FieldError{"shipping_address", "must be at most 255 characters"})
	}
	if len(r.BillingAddress) > maxAddressLen {
		errs = append(errs, FieldError{"billing_address", "must be at most 255 characters"})
	}
	switch r.PaymentMethod {
	case "":
		r.PaymentMethod = "card"
	case "card":
	default:
		errs = append(errs, FieldError{"payment_method", "unsupported payment method"})
	}
	return errs
}

// Checkout converts the cart into a pending order and opens a hosted payment
// session. POST /checkout
func Checkout(db *gorm.DB, orders *services.OrderService, gateway payment.Gateway, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrs})
			return
		}

		order, err := orders.CreateOrderFromCart(c.Request.Context(), userID,
			req.ShippingAddress, req.BillingAddress, req.PaymentMethod)
		switch {
		case errors.Is(err, services.ErrEmptyCart), errors.Is(err, services.ErrNoValidLines):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Could not create your order. Please check your cart and product availability.",
				"redirect": "/cart",
			})
			return
		case errors.Is(err, services.ErrNoUser):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		case err != nil:
			log.Error("checkout failed", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "An internal error occurred. Please try again.",
				"redirect": "/cart",
			})
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			log.Error("user lookup at checkout failed", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred. Please try again."})
			return
		}

		session, err := gateway.CreateSession(c.Request.Context(), *order, user.Email)
		if err != nil {
			// Gateway details stay in the logs, never in the response.
			log.Error("payment session creation failed",
				zap.String("reference", order.Reference),
				zap.String("user_id", userID),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "Payment error. Please try again.",
				"redirect": "/cart",
			})
			return
		}

		// Remember which session belongs to this order while it is pending.
		if err := db.Model(order).Update("payment_ref", session.ID).Error; err != nil {
			log.Warn("failed to store session id on order",
				zap.String("reference", order.Reference), zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{
			"reference":    order.Reference,
			"session_id":   session.ID,
			"checkout_url": session.CheckoutURL,
		})
	}
}

// Success handles the gateway redirect after payment. The query-string
// "success" is never trusted: the session status is re-queried from the
// gateway before the order is finalized. GET /checkout/success
func Success(orders *services.OrderService, gateway payment.Gateway, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Query("reference")
		sessionID := c.Query("session_id")
		if reference == "" || sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Missing payment confirmation parameters.",
				"redirect": "/cart",
			})
			return
		}

		order, err := orders.GetOrderByReference(c.Request.Context(), reference)
		if err != nil {
			if errors.Is(err, services.ErrOrderNotFound) {
				log.Warn("gateway redirect for unknown order", zap.String("reference", reference))
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found.", "redirect": "/cart"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred.", "redirect": "/cart"})
			return
		}

		// The session must be the one opened for this order; otherwise a paid
		// session for a cheap order could finalize any other pending order.
		if order.PaymentRef != "" && order.PaymentRef != sessionID {
			log.Warn("session id does not match order",
				zap.String("reference", reference),
				zap.String("session_id", sessionID))
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Payment confirmation does not match this order.",
				"redirect": "/cart",
			})
			return
		}

		status, err := gateway.GetSessionStatus(c.Request.Context(), sessionID)
		if err != nil {
			log.Error("payment status check failed",
				zap.String("reference", reference),
				zap.String("session_id", sessionID),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "Payment error. Please try again.",
				"redirect": "/orders/" + reference,
			})
			return
		}

		if status != payment.StatusPaid && status != payment.StatusNoPaymentRequired {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Payment was not confirmed. Please check your order status or try again.",
				"redirect": "/cart",
			})
			return
		}

		if err := orders.FinalizeOrder(c.Request.Context(), reference, sessionID); err != nil {
			if errors.Is(err, services.ErrOrderNotFinalizable) {
				middleware.RecordFinalization("cancelled")
				c.JSON(http.StatusConflict, gin.H{
					"error":    "This order can no longer be finalized. Please contact support about your payment.",
					"redirect": "/orders/" + reference,
				})
				return
			}
			if errors.Is(err, services.ErrStockConflict) {
				middleware.RecordFinalization("stock_conflict")
				c.JSON(http.StatusConflict, gin.H{
					"error":    "An error occurred while finalizing your order. Our team has been notified.",
					"redirect": "/orders/" + reference,
				})
				return
			}
			middleware.RecordFinalization("error")
			log.Error("order finalization failed",
				zap.String("reference", reference),
				zap.String("user_id", order.UserID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    "An error occurred while finalizing your order.",
				"redirect": "/orders/" + reference,
			})
			return
		}

		middleware.RecordFinalization("success")
		c.JSON(http.StatusOK, gin.H{
			"message":  "Your order has been processed successfully.",
			"redirect": "/orders/" + reference,
		})
	}
}

// Cancel handles the gateway redirect when the customer abandons payment.
// The order stays pending; stock was never reserved. GET /checkout/cancel
func Cancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Query("reference")
		c.JSON(http.StatusOK, gin.H{
			"message":   "Payment was cancelled. Your order has not been finalized.",
			"reference": reference,
			"redirect":  "/checkout",
		})
	}
}
