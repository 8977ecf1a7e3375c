// Package domain defines the core business entities and types for the
// evetabi bazaar simulated marketplace.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Item
// ──────────────────────────────────────────────────────────────────────────────

// Item is a tradable product whose price drifts under the evolution engine.
// All monetary fields are int64 amounts in the smallest price unit (kuruş);
// every stored price is a multiple of the configured price step.
//
// Price fields are mutated only by the evolution engine (through the
// compare-and-set primitive); bounds, volatility, and the active flag are
// mutated only through the backoffice. Items are never deleted — they are
// soft-deactivated via IsActive.
type Item struct {
	ID              uuid.UUID       `json:"id"               db:"id"`
	Name            string          `json:"name"             db:"name"`
	CurrentPrice    int64           `json:"current_price"    db:"current_price"`
	FloorPrice      int64           `json:"floor_price"      db:"floor_price"`
	CeilingPrice    int64           `json:"ceiling_price"    db:"ceiling_price"`
	VolatilityIndex decimal.Decimal `json:"volatility_index" db:"volatility_index"` // ≥ 0, scales per-tick variance
	IsActive        bool            `json:"is_active"        db:"is_active"`
	CreatedAt       time.Time       `json:"created_at"       db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"       db:"updated_at"`
}

// WithinBounds reports whether the current price respects the item's band.
func (i *Item) WithinBounds() bool {
	return i.FloorPrice <= i.CurrentPrice && i.CurrentPrice <= i.CeilingPrice
}

// Quantized reports whether the current price sits on the step grid.
func (i *Item) Quantized(step int64) bool {
	return step > 0 && i.CurrentPrice%step == 0
}

// ──────────────────────────────────────────────────────────────────────────────
// PriceHistoryEntry
// ──────────────────────────────────────────────────────────────────────────────

// PriceHistoryEntry is one append-only record of a committed price change.
// Entries are immutable once written and owned by the evolution engine.
type PriceHistoryEntry struct {
	ID         int64     `json:"-"           db:"id"`
	ItemID     uuid.UUID `json:"item_id"     db:"item_id"`
	Price      int64     `json:"price"       db:"price"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ItemSummary — lightweight read model for WS broadcasts and list endpoints
// ──────────────────────────────────────────────────────────────────────────────

// ItemSummary is a derived, read-only view of an Item used for broadcasting.
type ItemSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CurrentPrice int64     `json:"current_price"`
	FloorPrice   int64     `json:"floor_price"`
	CeilingPrice int64     `json:"ceiling_price"`
	IsActive     bool      `json:"is_active"`
}

// ToSummary builds an ItemSummary from the item.
func (i *Item) ToSummary() ItemSummary {
	return ItemSummary{
		ID:           i.ID,
		Name:         i.Name,
		CurrentPrice: i.CurrentPrice,
		FloorPrice:   i.FloorPrice,
		CeilingPrice: i.CeilingPrice,
		IsActive:     i.IsActive,
	}
}
