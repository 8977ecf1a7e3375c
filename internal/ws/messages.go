// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypePriceTick   MsgType = "price_tick"
	MsgTypeItemChanged MsgType = "item_changed"
	MsgTypeError       MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// PriceTickMessage — sent after every engine tick that moved at least one price.
// ──────────────────────────────────────────────────────────────────────────────

// PriceMove is one item's committed price change inside a tick.
type PriceMove struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	OldPrice int64     `json:"old_price"`
	NewPrice int64     `json:"new_price"`
}

// PriceTickMessage carries every price the engine moved in one pass so
// clients can refresh their displayed prices without polling.
type PriceTickMessage struct {
	Type      MsgType     `json:"type"`
	Moves     []PriceMove `json:"moves"`
	Timestamp time.Time   `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ItemChangedMessage — broadcast after a backoffice catalog mutation.
// ──────────────────────────────────────────────────────────────────────────────

// ItemChangedMessage tells clients an item's bounds, volatility, price, or
// active flag changed outside the normal tick cadence.
type ItemChangedMessage struct {
	Type      MsgType   `json:"type"`
	ItemID    uuid.UUID `json:"item_id"`
	Field     string    `json:"field"` // "bounds" | "volatility" | "price" | "active"
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage is sent to a single client on a protocol error.
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
