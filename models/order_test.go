package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		{PaymentStatusPaid, PaymentStatusRefunded, true},
		{PaymentStatusPaid, PaymentStatusPending, false},
		{PaymentStatusPaid, PaymentStatusFailed, false},
		{PaymentStatusFailed, PaymentStatusPaid, false},
		{PaymentStatusRefunded, PaymentStatusPaid, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestCalculateTotal(t *testing.T) {
	order := Order{
		Items: []OrderItem{
			{Price: decimal.RequireFromString("10.00"), Quantity: 2},
			{Price: decimal.RequireFromString("2.50"), Quantity: 3},
		},
	}

	total := order.CalculateTotal()

	want := decimal.RequireFromString("27.50")
	if !total.Equal(want) {
		t.Errorf("CalculateTotal() = %s, want %s", total, want)
	}
	if !order.TotalAmount.Equal(want) {
		t.Errorf("TotalAmount = %s, want %s", order.TotalAmount, want)
	}
}

func TestCalculateTotalEmptyOrder(t *testing.T) {
	var order Order
	if total := order.CalculateTotal(); !total.Equal(decimal.Zero) {
		t.Errorf("CalculateTotal() on empty order = %s, want 0", total)
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{Price: decimal.RequireFromString("19.99"), Quantity: 3}
	want := decimal.RequireFromString("59.97")
	if got := item.Subtotal(); !got.Equal(want) {
		t.Errorf("Subtotal() = %s, want %s", got, want)
	}
}

func TestMarkPaidOnlyOnce(t *testing.T) {
	order := Order{PaymentStatus: PaymentStatusPending}
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !order.MarkPaid("sess_123", first) {
		t.Fatal("first MarkPaid should succeed")
	}
	if order.PaymentStatus != PaymentStatusPaid {
		t.Errorf("PaymentStatus = %s, want paid", order.PaymentStatus)
	}
	if order.PaymentRef != "sess_123" {
		t.Errorf("PaymentRef = %q, want sess_123", order.PaymentRef)
	}
	if order.PaidAt == nil || !order.PaidAt.Equal(first) {
		t.Errorf("PaidAt = %v, want %v", order.PaidAt, first)
	}

	// A second call must not overwrite anything.
	if order.MarkPaid("sess_456", first.Add(time.Hour)) {
		t.Error("second MarkPaid should be a no-op")
	}
	if order.PaymentRef != "sess_123" {
		t.Errorf("PaymentRef after second call = %q, want sess_123", order.PaymentRef)
	}
	if !order.PaidAt.Equal(first) {
		t.Errorf("PaidAt after second call = %v, want %v", order.PaidAt, first)
	}
}

func TestNewOrderReference(t *testing.T) {
	ref := NewOrderReference()
	if !strings.HasPrefix(ref, "ORD-") {
		t.Errorf("reference %q should start with ORD-", ref)
	}
	if ref == NewOrderReference() {
		t.Error("consecutive references should differ")
	}
}

func TestItemCount(t *testing.T) {
	order := Order{Items: []OrderItem{{Quantity: 2}, {Quantity: 5}}}
	if got := order.ItemCount(); got != 7 {
		t.Errorf("ItemCount() = %d, want 7", got)
	}
}

func TestProductOrderable(t *testing.T) {
	cases := []struct {
		name     string
		product  Product
		quantity int
		want     bool
	}{
		{"in stock", Product{Active: true, Stock: 5}, 2, true},
		{"exact stock", Product{Active: true, Stock: 2}, 2, true},
		{"short on stock", Product{Active: true, Stock: 1}, 2, false},
		{"inactive", Product{Active: false, Stock: 10}, 1, false},
		{"zero quantity", Product{Active: true, Stock: 10}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.product.Orderable(tc.quantity); got != tc.want {
				t.Errorf("Orderable(%d) = %v, want %v", tc.quantity, got, tc.want)
			}
		})
	}
}

func TestCartTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("10.00")},
		{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("5.25")},
	}}
	want := decimal.RequireFromString("25.25")
	if got := cart.Total(); !got.Equal(want) {
		t.Errorf("Total() = %s, want %s", got, want)
	}

	if item := cart.FindItemByProduct(2); item == nil || !item.Price.Equal(decimal.RequireFromString("5.25")) {
		t.Errorf("FindItemByProduct(2) = %+v, want the 5.25 line", item)
	}
	if item := cart.FindItemByProduct(99); item != nil {
		t.Errorf("FindItemByProduct(99) = %+v, want nil", item)
	}
}
