package domain

import "github.com/shopspring/decimal"

// ──────────────────────────────────────────────────────────────────────────────
// Pure pricing math — no I/O, fully deterministic given the random draws.
// ──────────────────────────────────────────────────────────────────────────────

// Direction is the sign of a single price move.
type Direction int

const (
	DirectionUp   Direction = 1
	DirectionDown Direction = -1
)

// TickDraw carries the two random draws consumed by one item's price step.
// Separating the draws from the arithmetic keeps NextPrice deterministic and
// directly testable.
type TickDraw struct {
	Direction  Direction
	BaseChange decimal.Decimal // uniform in [MinChangePct, MaxChangePct)
}

// Clamp bounds v to [floor, ceiling].
func Clamp(v decimal.Decimal, floor, ceiling int64) decimal.Decimal {
	f := decimal.NewFromInt(floor)
	c := decimal.NewFromInt(ceiling)
	if v.LessThan(f) {
		return f
	}
	if v.GreaterThan(c) {
		return c
	}
	return v
}

// QuantizeToStep rounds v to the nearest multiple of step.
//
// Rounding rule: round-half-up. decimal's Round uses half-away-from-zero,
// which is identical on the positive price domain; this is the single place
// the rule lives so every price in the system is quantized the same way.
func QuantizeToStep(v decimal.Decimal, step int64) int64 {
	s := decimal.NewFromInt(step)
	return v.Div(s).Round(0).Mul(s).IntPart()
}

// NextPrice computes one evolution step for an item: apply the drawn change
// scaled by volatility, clamp to the item's band, then quantize to the step.
//
// Order matters: clamping runs before quantization, so a value pinned exactly
// at a bound may still shift by up to one step when the bound itself is off
// the grid. That drift is accepted and consistent.
func NextPrice(item *Item, draw TickDraw, step int64) int64 {
	current := decimal.NewFromInt(item.CurrentPrice)
	pct := draw.BaseChange.Mul(item.VolatilityIndex)
	delta := current.Mul(pct).Mul(decimal.NewFromInt(int64(draw.Direction)))
	raw := current.Add(delta)
	clamped := Clamp(raw, item.FloorPrice, item.CeilingPrice)
	return QuantizeToStep(clamped, step)
}
