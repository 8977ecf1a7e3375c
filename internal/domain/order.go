package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "CONFIRMED" // set at settlement, never by clients
	OrderStatusCancelled OrderStatus = "CANCELLED" // backoffice only
	OrderStatusFulfilled OrderStatus = "FULFILLED" // backoffice only
)

// IsValid returns true if the status is a recognised order state.
func (s OrderStatus) IsValid() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled || s == OrderStatusFulfilled
}

// ──────────────────────────────────────────────────────────────────────────────
// Order
// ──────────────────────────────────────────────────────────────────────────────

// Order is one settled buy transaction. TotalAmount is immutable after
// creation; only Status may change afterwards, and only via the backoffice.
type Order struct {
	ID          uuid.UUID   `json:"id"           db:"id"`
	BuyerID     uuid.UUID   `json:"buyer_id"     db:"buyer_id"`
	TotalAmount int64       `json:"total_amount" db:"total_amount"`
	Status      OrderStatus `json:"status"       db:"status"`
	CreatedAt   time.Time   `json:"created_at"   db:"created_at"`
}

// OrderLineItem is the single line of an order (one item per order in this
// model). It is co-created atomically with its Order and immutable after.
type OrderLineItem struct {
	ID          uuid.UUID `json:"id"            db:"id"`
	OrderID     uuid.UUID `json:"order_id"      db:"order_id"`
	ItemID      uuid.UUID `json:"item_id"       db:"item_id"`
	Quantity    int64     `json:"quantity"      db:"quantity"`
	PriceAtSale int64     `json:"price_at_sale" db:"price_at_sale"`
	Subtotal    int64     `json:"subtotal"      db:"subtotal"`
}

// Consistent reports whether the line's subtotal matches quantity × price.
func (l *OrderLineItem) Consistent() bool {
	return l.Subtotal == l.Quantity*l.PriceAtSale
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceOrderRequest — value object used by OrderService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceOrderRequest carries the validated inputs for settling an order.
// LockedPrice is the price the buyer saw when they clicked buy; the
// settlement engine re-validates it against the stored price.
type PlaceOrderRequest struct {
	BuyerID     uuid.UUID
	ItemID      uuid.UUID
	Quantity    int64
	LockedPrice int64
}

// OrderReceipt is the API-safe view of a settled order with its line.
type OrderReceipt struct {
	OrderID     uuid.UUID   `json:"order_id"`
	ItemID      uuid.UUID   `json:"item_id"`
	Quantity    int64       `json:"quantity"`
	PriceAtSale int64       `json:"price_at_sale"`
	Subtotal    int64       `json:"subtotal"`
	TotalAmount int64       `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewReceipt builds an OrderReceipt from an order and its line item.
func NewReceipt(o *Order, l *OrderLineItem) OrderReceipt {
	return OrderReceipt{
		OrderID:     o.ID,
		ItemID:      l.ItemID,
		Quantity:    l.Quantity,
		PriceAtSale: l.PriceAtSale,
		Subtotal:    l.Subtotal,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}
