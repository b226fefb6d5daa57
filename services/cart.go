package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/models"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product inactive or out of stock")
	ErrCartItemNotFound   = errors.New("cart item not found")
)

// CartService manages the per-user cart aggregate.
type CartService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCartService(db *gorm.DB, log *zap.Logger) *CartService {
	return &CartService{db: db, log: log}
}

// GetCart returns the user's cart with its lines and products, creating an
// empty cart on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items.Product").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		if err := s.db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return &cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &cart, nil
}

// AddItem puts quantity units of a product into the cart, capturing the unit
// price at add-time. Adding a product already in the cart merges quantities,
// re-checking stock against the merged amount.
func (s *CartService) AddItem(ctx context.Context, userID string, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing := cart.FindItemByProduct(productID); existing != nil {
		merged := existing.Quantity + quantity
		if !product.Orderable(merged) {
			return nil, ErrProductUnavailable
		}
		existing.Quantity = merged
		existing.AddedAt = time.Now()
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
		return existing, nil
	}

	if !product.Orderable(quantity) {
		return nil, ErrProductUnavailable
	}

	item := models.CartItem{
		CartID:    cart.CartID,
		ProductID: product.ID,
		Quantity:  quantity,
		Price:     product.Price,
		AddedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return &item, nil
}

// UpdateItemQuantity sets the quantity of a cart line. Zero or negative
// removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID string, productID uint, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("load product: %w", err)
	}
	if !product.Orderable(quantity) {
		return ErrProductUnavailable
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	item := cart.FindItemByProduct(productID)
	if item == nil {
		return ErrCartItemNotFound
	}
	item.Quantity = quantity
	return s.db.WithContext(ctx).Save(item).Error
}

// RemoveItem deletes a single line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID uint) error {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.CartID, productID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("delete cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// ClearCart removes every line from the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
