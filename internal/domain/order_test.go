package domain_test

import (
	"testing"
	"time"

	"github.com/evetabi/bazaar/internal/domain"
	"github.com/google/uuid"
)

// TestLineItemConsistency verifies the subtotal invariant: 3 units locked at
// 100 must settle at exactly 300.
func TestLineItemConsistency(t *testing.T) {
	line := &domain.OrderLineItem{
		Quantity:    3,
		PriceAtSale: 100,
		Subtotal:    300,
	}
	if !line.Consistent() {
		t.Error("3 × 100 = 300 should be consistent")
	}

	line.Subtotal = 310
	if line.Consistent() {
		t.Error("subtotal 310 for 3 × 100 should be inconsistent")
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	valid := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusCancelled,
		domain.OrderStatusFulfilled,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	for _, s := range []domain.OrderStatus{"", "PENDING", "confirmed"} {
		if s.IsValid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

// TestNewReceipt confirms the receipt mirrors the order and its line.
func TestNewReceipt(t *testing.T) {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.New(),
		BuyerID:     uuid.New(),
		TotalAmount: 300,
		Status:      domain.OrderStatusConfirmed,
		CreatedAt:   now,
	}
	line := &domain.OrderLineItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ItemID:      uuid.New(),
		Quantity:    3,
		PriceAtSale: 100,
		Subtotal:    300,
	}

	r := domain.NewReceipt(order, line)

	if r.OrderID != order.ID {
		t.Errorf("receipt.OrderID = %s, want %s", r.OrderID, order.ID)
	}
	if r.ItemID != line.ItemID {
		t.Errorf("receipt.ItemID = %s, want %s", r.ItemID, line.ItemID)
	}
	if r.Quantity != 3 || r.PriceAtSale != 100 || r.Subtotal != 300 || r.TotalAmount != 300 {
		t.Errorf("receipt amounts = (%d, %d, %d, %d), want (3, 100, 300, 300)",
			r.Quantity, r.PriceAtSale, r.Subtotal, r.TotalAmount)
	}
	if r.Status != domain.OrderStatusConfirmed {
		t.Errorf("receipt.Status = %s, want CONFIRMED", r.Status)
	}
	if !r.CreatedAt.Equal(now) {
		t.Errorf("receipt.CreatedAt = %s, want %s", r.CreatedAt, now)
	}
}
