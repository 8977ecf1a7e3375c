package domain_test

import (
	"testing"

	"github.com/evetabi/bazaar/internal/domain"
	"github.com/shopspring/decimal"
)

const step = int64(10)

func testItem(price, floor, ceiling int64, vol float64) *domain.Item {
	return &domain.Item{
		CurrentPrice:    price,
		FloorPrice:      floor,
		CeilingPrice:    ceiling,
		VolatilityIndex: decimal.NewFromFloat(vol),
	}
}

// TestNextPrice_SmallMoveQuantizesBack covers the "no visible move" case: a
// +3% draw on a 100-unit price lands at 103, which quantizes back to 100.
// The engine treats this as unchanged — no write, no history row.
func TestNextPrice_SmallMoveQuantizesBack(t *testing.T) {
	item := testItem(100, 50, 200, 1.0)
	draw := domain.TickDraw{
		Direction:  domain.DirectionUp,
		BaseChange: decimal.NewFromFloat(0.03),
	}

	got := domain.NextPrice(item, draw, step)
	if got != 100 {
		t.Errorf("NextPrice(100 +3%%) = %d, want 100 (103 quantized to grid)", got)
	}
}

// TestNextPrice_LargeMoveCommits: +6% on 100 is 106, which rounds up to 110.
func TestNextPrice_LargeMoveCommits(t *testing.T) {
	item := testItem(100, 50, 200, 1.0)
	draw := domain.TickDraw{
		Direction:  domain.DirectionUp,
		BaseChange: decimal.NewFromFloat(0.06),
	}

	got := domain.NextPrice(item, draw, step)
	if got != 110 {
		t.Errorf("NextPrice(100 +6%%) = %d, want 110", got)
	}
}

// TestNextPrice_ClampsAtCeiling: 190 × 1.12 = 212.8 exceeds the 200 ceiling,
// so the result pins to 200 exactly (200 is on the grid).
func TestNextPrice_ClampsAtCeiling(t *testing.T) {
	item := testItem(190, 50, 200, 2.0)
	draw := domain.TickDraw{
		Direction:  domain.DirectionUp,
		BaseChange: decimal.NewFromFloat(0.06),
	}

	got := domain.NextPrice(item, draw, step)
	if got != 200 {
		t.Errorf("NextPrice over ceiling = %d, want 200", got)
	}
}

// TestNextPrice_ClampsAtFloor: 60 − 18% = 49.2 dips under the 50 floor and
// pins to 50 exactly.
func TestNextPrice_ClampsAtFloor(t *testing.T) {
	item := testItem(60, 50, 200, 3.0)
	draw := domain.TickDraw{
		Direction:  domain.DirectionDown,
		BaseChange: decimal.NewFromFloat(0.06),
	}

	got := domain.NextPrice(item, draw, step)
	if got != 50 {
		t.Errorf("NextPrice under floor = %d, want 50", got)
	}
}

// TestNextPrice_ZeroVolatilityNeverMoves: volatility 0 freezes the price no
// matter what is drawn.
func TestNextPrice_ZeroVolatilityNeverMoves(t *testing.T) {
	item := testItem(130, 50, 200, 0)
	for _, dir := range []domain.Direction{domain.DirectionUp, domain.DirectionDown} {
		draw := domain.TickDraw{Direction: dir, BaseChange: decimal.NewFromFloat(0.06)}
		if got := domain.NextPrice(item, draw, step); got != 130 {
			t.Errorf("NextPrice with volatility 0, dir %d = %d, want 130", dir, got)
		}
	}
}

// TestNextPrice_AlwaysOnGrid sweeps a range of draws and confirms every
// result is a multiple of the step.
func TestNextPrice_AlwaysOnGrid(t *testing.T) {
	item := testItem(137, 50, 400, 1.7)
	for pct := 0.01; pct < 0.06; pct += 0.007 {
		for _, dir := range []domain.Direction{domain.DirectionUp, domain.DirectionDown} {
			draw := domain.TickDraw{Direction: dir, BaseChange: decimal.NewFromFloat(pct)}
			got := domain.NextPrice(item, draw, step)
			if got%step != 0 {
				t.Errorf("NextPrice(pct=%.3f, dir=%d) = %d, not on step grid %d", pct, dir, got, step)
			}
		}
	}
}

// TestQuantizeToStep pins the rounding rule: half rounds up on this domain.
func TestQuantizeToStep(t *testing.T) {
	cases := []struct {
		in   float64
		step int64
		want int64
	}{
		{104, 10, 100},
		{105, 10, 110}, // half rounds up
		{95, 10, 100},  // half rounds up
		{94.99, 10, 90},
		{100, 10, 100},
		{996, 10, 1000},
		{110, 25, 100}, // 4.4 → 4
		{113, 25, 125}, // 4.52 → 5
	}
	for _, tc := range cases {
		got := domain.QuantizeToStep(decimal.NewFromFloat(tc.in), tc.step)
		if got != tc.want {
			t.Errorf("QuantizeToStep(%.2f, %d) = %d, want %d", tc.in, tc.step, got, tc.want)
		}
	}
}

// TestClamp checks the three regions of the band.
func TestClamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{40, "50"},
		{50, "50"},
		{125.5, "125.5"},
		{200, "200"},
		{260, "200"},
	}
	for _, tc := range cases {
		got := domain.Clamp(decimal.NewFromFloat(tc.in), 50, 200)
		if got.String() != tc.want {
			t.Errorf("Clamp(%.1f, 50, 200) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
