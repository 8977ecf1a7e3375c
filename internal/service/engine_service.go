package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// PricingStore — the injected store capability the engine mutates
// ──────────────────────────────────────────────────────────────────────────────

// PricingStore is the slice of the pricing store the evolution engine needs.
// Implemented by repository.ItemRepository; tests substitute an in-memory
// store so tick behavior can be verified without PostgreSQL.
type PricingStore interface {
	GetActive(ctx context.Context) ([]*domain.Item, error)
	CompareAndSetPrice(ctx context.Context, id uuid.UUID, expected, newPrice int64) (bool, error)
	AppendHistory(ctx context.Context, id uuid.UUID, price int64, recordedAt time.Time) error
}

// ──────────────────────────────────────────────────────────────────────────────
// Tick results
// ──────────────────────────────────────────────────────────────────────────────

// PriceChange describes one committed price move, used for WS broadcasts.
type PriceChange struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	OldPrice int64     `json:"old_price"`
	NewPrice int64     `json:"new_price"`
}

// TickStats summarises one full pass over the active catalog.
type TickStats struct {
	Processed int           // active items examined
	Updated   int           // CAS applied + history appended
	Unchanged int           // quantized price equalled the stored price
	Conflicts int           // CAS lost a race; skipped until next tick
	Failures  int           // per-item errors (logged, never abort the tick)
	Changes   []PriceChange // one entry per Updated item
}

// ──────────────────────────────────────────────────────────────────────────────
// EngineService
// ──────────────────────────────────────────────────────────────────────────────

// EngineService is the price evolution engine ("the bot"): once per tick it
// walks every active item, draws a bounded random move, and commits the new
// price plus a history entry — only when the quantized price actually changed.
//
// The engine is the sole steady-state writer of price fields, so its
// compare-and-set is optimistic: a failed CAS means an external writer (e.g.
// a backoffice manual price set) got there first, and the item is simply
// skipped until the next tick re-evaluates from fresh state.
type EngineService struct {
	store  PricingStore
	cfg    *config.Config
	logger *slog.Logger

	// rng guarded by mu: ticks are serialized by the scheduler, but manual
	// RunTick calls (backoffice trigger, tests) may overlap with it.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngineService creates an EngineService with a time-seeded random source.
func NewEngineService(store PricingStore, cfg *config.Config, logger *slog.Logger) *EngineService {
	seed := uint64(time.Now().UnixNano())
	return &EngineService{
		store:  store,
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, seed>>32)),
	}
}

// SetRand replaces the random source. Intended for deterministic tests.
func (s *EngineService) SetRand(r *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = r
}

// ──────────────────────────────────────────────────────────────────────────────
// RunTick
// ──────────────────────────────────────────────────────────────────────────────

// RunTick performs one evolution pass over all active items. A single item's
// failure is logged and counted but never aborts the remaining items; the
// returned error is non-nil only when the active list itself could not be
// fetched.
func (s *EngineService) RunTick(ctx context.Context) (TickStats, error) {
	var stats TickStats

	listCtx, cancel := context.WithTimeout(ctx, s.cfg.DB.QueryTimeout)
	items, err := s.store.GetActive(listCtx)
	cancel()
	if err != nil {
		return stats, fmt.Errorf("engine_service.RunTick: list active: %w", err)
	}

	now := time.Now().UTC()
	for _, item := range items {
		stats.Processed++

		change, outcome, err := s.evolveItem(ctx, item, now)
		switch {
		case err != nil:
			stats.Failures++
			s.logger.Error("engine: item update failed",
				"item_id", item.ID, "name", item.Name, "err", err)
		case outcome == outcomeConflict:
			stats.Conflicts++
			s.logger.Warn("engine: price CAS lost race, skipping until next tick",
				"item_id", item.ID, "name", item.Name)
		case outcome == outcomeUnchanged:
			stats.Unchanged++
		default:
			stats.Updated++
			stats.Changes = append(stats.Changes, change)
		}
	}

	return stats, nil
}

type evolveOutcome int

const (
	outcomeUpdated evolveOutcome = iota
	outcomeUnchanged
	outcomeConflict
)

// evolveItem runs steps 1–7 of the per-item update: draw, scale, clamp,
// quantize, then commit via CAS and append history only on an actual change.
func (s *EngineService) evolveItem(ctx context.Context, item *domain.Item, now time.Time) (PriceChange, evolveOutcome, error) {
	draw := s.draw()
	newPrice := domain.NextPrice(item, draw, s.cfg.Engine.PriceStep)

	// Invariant check: clamp-then-quantize may drift off a bound by at most
	// one step, but a price outside [floor-step, ceiling+step] is a bug.
	if newPrice < item.FloorPrice-s.cfg.Engine.PriceStep || newPrice > item.CeilingPrice+s.cfg.Engine.PriceStep {
		return PriceChange{}, outcomeUnchanged, fmt.Errorf(
			"computed price %d violates bounds [%d, %d] for item %s",
			newPrice, item.FloorPrice, item.CeilingPrice, item.ID)
	}

	if newPrice == item.CurrentPrice {
		return PriceChange{}, outcomeUnchanged, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.DB.QueryTimeout)
	defer cancel()

	applied, err := s.store.CompareAndSetPrice(opCtx, item.ID, item.CurrentPrice, newPrice)
	if err != nil {
		return PriceChange{}, outcomeUnchanged, err
	}
	if !applied {
		// Lost the race against an external writer; no retry within this tick.
		return PriceChange{}, outcomeConflict, nil
	}

	if err := s.store.AppendHistory(opCtx, item.ID, newPrice, now); err != nil {
		return PriceChange{}, outcomeUnchanged, fmt.Errorf("append history: %w", err)
	}

	return PriceChange{
		ItemID:   item.ID,
		Name:     item.Name,
		OldPrice: item.CurrentPrice,
		NewPrice: newPrice,
	}, outcomeUpdated, nil
}

// draw produces the two random values for one item's move: a fair-coin
// direction and a base change uniform in [MinChangePct, MaxChangePct).
func (s *EngineService) draw() domain.TickDraw {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := domain.DirectionUp
	if s.rng.IntN(2) == 0 {
		dir = domain.DirectionDown
	}
	span := s.cfg.Engine.MaxChangePct - s.cfg.Engine.MinChangePct
	base := s.cfg.Engine.MinChangePct + s.rng.Float64()*span

	return domain.TickDraw{
		Direction:  dir,
		BaseChange: decimal.NewFromFloat(base),
	}
}
