package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velmart/storefront-api/models"
)

// Failure taxonomy for the order workflow. Handlers map these onto
// user-facing messages; anything else is a persistence error and propagates.
var (
	ErrNoUser              = errors.New("no authenticated user")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoValidLines        = errors.New("no valid order lines")
	ErrOrderNotFound       = errors.New("order not found")
	ErrStockConflict       = errors.New("insufficient stock at finalization")
	ErrOrderNotFinalizable = errors.New("order cannot be finalized from its current status")
)

// OrderNotifier receives post-finalization side effects (invoice mail).
// Implementations must be safe for concurrent use; delivery is best-effort.
type OrderNotifier interface {
	OrderConfirmed(order models.Order)
}

// OrderService orchestrates the cart -> order -> payment -> stock workflow.
type OrderService struct {
	db       *gorm.DB
	log      *zap.Logger
	notifier OrderNotifier
}

func NewOrderService(db *gorm.DB, log *zap.Logger, notifier OrderNotifier) *OrderService {
	return &OrderService{db: db, log: log, notifier: notifier}
}

// CreateOrderFromCart snapshots the user's cart into a pending order.
//
// Lines whose product is inactive or short on stock are skipped with a
// warning instead of failing the whole order. Stock is NOT decremented here;
// that happens at finalization so unpaid orders never hold inventory. The
// cart survives until finalization too, so an abandoned payment leaves it
// intact.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, userID, shippingAddress, billingAddress, paymentMethod string) (*models.Order, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoUser
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items.Product").Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if shippingAddress == "" {
		shippingAddress = user.ShippingAddress
	}
	if billingAddress == "" {
		billingAddress = user.BillingAddress
	}

	order := models.Order{
		Reference:       models.NewOrderReference(),
		UserID:          userID,
		ShippingAddress: shippingAddress,
		BillingAddress:  billingAddress,
		PaymentMethod:   paymentMethod,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	for _, item := range cart.Items {
		if !item.Product.Orderable(item.Quantity) {
			s.log.Warn("skipping cart line at checkout",
				zap.String("user_id", userID),
				zap.Uint("product_id", item.ProductID),
				zap.Int("requested", item.Quantity),
				zap.Int("stock", item.Product.Stock),
				zap.Bool("active", item.Product.Active))
			continue
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}

	if len(order.Items) == 0 {
		s.log.Warn("no valid lines in cart, order not created", zap.String("user_id", userID))
		return nil, ErrNoValidLines
	}
	order.CalculateTotal()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.log.Info("order created",
		zap.String("reference", order.Reference),
		zap.String("user_id", userID),
		zap.Int("lines", len(order.Items)),
		zap.String("total", order.TotalAmount.String()))

	return &order, nil
}

// FinalizeOrder records a confirmed payment and commits the stock decrement.
//
// Idempotent: an order already marked paid returns success without touching
// stock again. The transaction locks the order row, re-checks the paid flag
// under the lock, then locks and re-validates every product before
// decrementing, so two concurrent redirect- or webhook-triggered
// finalizations serialize and the loser no-ops. An order whose status no
// longer admits the paid transition (cancelled, most likely) returns
// ErrOrderNotFinalizable. A stock shortfall at this point rolls back
// everything and is logged as critical, because the customer has already
// paid.
func (s *OrderService) FinalizeOrder(ctx context.Context, reference, paymentRef string) error {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		s.log.Info("order already paid, finalization is a no-op", zap.String("reference", reference))
		return nil
	}

	finalized := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", reference).First(&order).Error; err != nil {
			return err
		}
		// Re-check under the lock: a concurrent finalization may have won.
		if !order.MarkPaid(paymentRef, time.Now()) {
			return nil
		}
		// A cancelled order can still receive a payment when the customer
		// completes checkout in a stale gateway tab. Terminal statuses stay
		// terminal; money moved on a dead order, so an operator has to step in.
		if !order.Status.CanTransitionTo(models.OrderStatusProcessing) {
			s.log.Error("payment received for an order that cannot be finalized",
				zap.String("reference", reference),
				zap.String("user_id", order.UserID),
				zap.String("status", string(order.Status)),
				zap.String("payment_ref", paymentRef))
			return ErrOrderNotFinalizable
		}
		order.Status = models.OrderStatusProcessing

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}
		order.Items = items

		for _, item := range items {
			var product models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&product, "id = ?", item.ProductID).Error; err != nil {
				return fmt.Errorf("load product %d: %w", item.ProductID, err)
			}
			if !product.Orderable(item.Quantity) {
				s.log.Error("stock conflict at finalization, rolling back paid order",
					zap.String("reference", reference),
					zap.String("user_id", order.UserID),
					zap.Uint("product_id", item.ProductID),
					zap.Int("requested", item.Quantity),
					zap.Int("stock", product.Stock))
				return ErrStockConflict
			}
			if err := tx.Model(&product).
				Update("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
				return err
			}
		}

		finalized = true
		return tx.Model(&order).Updates(map[string]interface{}{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
			"payment_ref":    order.PaymentRef,
			"paid_at":        order.PaidAt,
		}).Error
	})
	if err != nil {
		return err
	}
	if !finalized {
		// The concurrent winner already cleared the cart and sent the mail.
		s.log.Info("order already paid, finalization is a no-op", zap.String("reference", reference))
		return nil
	}

	s.log.Info("order finalized",
		zap.String("reference", reference),
		zap.String("user_id", order.UserID),
		zap.String("payment_ref", paymentRef))

	// Best-effort side effects outside the transaction.
	s.clearCartAfterFinalize(ctx, order.UserID, reference)
	if s.notifier != nil {
		go s.notifier.OrderConfirmed(order)
	}

	return nil
}

func (s *OrderService) clearCartAfterFinalize(ctx context.Context, userID, reference string) {
	var cart models.Cart
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		s.log.Warn("cart lookup after finalization failed",
			zap.String("reference", reference), zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
		s.log.Warn("cart clear after finalization failed",
			zap.String("reference", reference), zap.String("user_id", userID), zap.Error(err))
	}
}

// CancelOrder moves a pending order to cancelled. Any other current status is
// a no-op returning false. Stock needs no adjustment because a pending order
// has never decremented it.
func (s *OrderService) CancelOrder(ctx context.Context, userID, reference string) (bool, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("reference = ? AND user_id = ?", reference, userID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrOrderNotFound
		}
		return false, fmt.Errorf("load order: %w", err)
	}

	if order.Status != models.OrderStatusPending {
		return false, nil
	}

	if err := s.db.WithContext(ctx).Model(&order).
		Update("status", models.OrderStatusCancelled).Error; err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}

	s.log.Info("order cancelled", zap.String("reference", reference), zap.String("user_id", userID))
	return true, nil
}

// GetOrderByReference loads an order with its lines.
func (s *OrderService) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("reference = ?", reference).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetUserOrders lists a user's orders, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// SetOrderStatus applies an admin status change, enforcing the transition
// rules (forward-only plus the cancel escape hatch).
func (s *OrderService) SetOrderStatus(ctx context.Context, reference string, next models.OrderStatus) error {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if !order.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s", order.Status, next)
	}
	return s.db.WithContext(ctx).Model(&order).Update("status", next).Error
}

// SetPaymentStatus applies an admin payment-status change (e.g. a refund),
// enforcing the payment state machine.
func (s *OrderService) SetPaymentStatus(ctx context.Context, reference string, next models.PaymentStatus) error {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if !order.PaymentStatus.CanTransitionTo(next) {
		return fmt.Errorf("illegal payment status transition %s -> %s", order.PaymentStatus, next)
	}
	return s.db.WithContext(ctx).Model(&order).Update("payment_status", next).Error
}
