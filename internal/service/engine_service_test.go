package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory PricingStore ────────────────────────────────────────────────────

type histEntry struct {
	itemID uuid.UUID
	price  int64
}

// memStore is an in-memory PricingStore implementation. CAS behaves like the
// SQL conditional UPDATE: it applies only when the stored price still equals
// the expected price.
type memStore struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*domain.Item
	history  []histEntry
	casCalls int

	rejectCAS map[uuid.UUID]bool  // simulate losing the race
	errCAS    map[uuid.UUID]error // simulate a store failure
	listErr   error
}

func newMemStore(items ...*domain.Item) *memStore {
	s := &memStore{
		items:     make(map[uuid.UUID]*domain.Item),
		rejectCAS: make(map[uuid.UUID]bool),
		errCAS:    make(map[uuid.UUID]error),
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *memStore) GetActive(ctx context.Context) ([]*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*domain.Item, 0, len(s.items))
	for _, it := range s.items {
		if it.IsActive {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CompareAndSetPrice(ctx context.Context, id uuid.UUID, expected, newPrice int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casCalls++
	if err := s.errCAS[id]; err != nil {
		return false, err
	}
	if s.rejectCAS[id] {
		return false, nil
	}
	it, ok := s.items[id]
	if !ok || it.CurrentPrice != expected {
		return false, nil
	}
	it.CurrentPrice = newPrice
	return true, nil
}

func (s *memStore) AppendHistory(ctx context.Context, id uuid.UUID, price int64, recordedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, histEntry{itemID: id, price: price})
	return nil
}

func (s *memStore) currentPrice(id uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].CurrentPrice
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func engineCfg(minPct, maxPct float64) *config.Config {
	return &config.Config{
		DB: config.DBConfig{QueryTimeout: time.Second},
		Engine: config.EngineConfig{
			TickInterval: 5 * time.Second,
			PriceStep:    10,
			MinChangePct: minPct,
			MaxChangePct: maxPct,
		},
	}
}

func newTestEngine(store service.PricingStore, cfg *config.Config) *service.EngineService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := service.NewEngineService(store, cfg, logger)
	eng.SetRand(rand.New(rand.NewPCG(42, 7)))
	return eng
}

func activeItem(price, floor, ceiling int64, vol float64) *domain.Item {
	return &domain.Item{
		ID:              uuid.New(),
		Name:            "test item",
		CurrentPrice:    price,
		FloorPrice:      floor,
		CeilingPrice:    ceiling,
		VolatilityIndex: decimal.NewFromFloat(vol),
		IsActive:        true,
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

// TestRunTick_CommitsMoveAndHistory pins the base change to ~6% so the move
// on a 100-unit price is ±6, which always quantizes to a new grid price
// (110 or 90) whatever direction is drawn.
func TestRunTick_CommitsMoveAndHistory(t *testing.T) {
	item := activeItem(100, 50, 200, 1.0)
	store := newMemStore(item)
	eng := newTestEngine(store, engineCfg(0.06, 0.0601))

	stats, err := eng.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 0, stats.Unchanged)
	assert.Equal(t, 0, stats.Failures)
	require.Len(t, stats.Changes, 1)

	got := store.currentPrice(item.ID)
	assert.Contains(t, []int64{90, 110}, got, "price should move one step either way")
	assert.Equal(t, got, stats.Changes[0].NewPrice)
	assert.Equal(t, int64(100), stats.Changes[0].OldPrice)

	require.Len(t, store.history, 1, "exactly one history row per committed move")
	assert.Equal(t, got, store.history[0].price)
}

// TestRunTick_NoWriteWhenQuantizedUnchanged: a ~1% move on 100 lands inside
// the same grid bucket, so nothing is written — no CAS call, no history.
func TestRunTick_NoWriteWhenQuantizedUnchanged(t *testing.T) {
	item := activeItem(100, 50, 200, 1.0)
	store := newMemStore(item)
	eng := newTestEngine(store, engineCfg(0.01, 0.0101))

	stats, err := eng.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 0, store.casCalls, "unchanged price must not touch the store")
	assert.Empty(t, store.history)
	assert.Equal(t, int64(100), store.currentPrice(item.ID))
}

// TestRunTick_ZeroVolatilityFrozen: volatility 0 keeps the item inert.
func TestRunTick_ZeroVolatilityFrozen(t *testing.T) {
	item := activeItem(130, 50, 200, 0)
	store := newMemStore(item)
	eng := newTestEngine(store, engineCfg(0.01, 0.06))

	stats, err := eng.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Unchanged)
	assert.Empty(t, store.history)
	assert.Equal(t, int64(130), store.currentPrice(item.ID))
}

// TestRunTick_ConflictSkipsItem: a lost CAS counts as a conflict and must not
// produce a history row or a broadcast change.
func TestRunTick_ConflictSkipsItem(t *testing.T) {
	item := activeItem(100, 50, 200, 1.0)
	store := newMemStore(item)
	store.rejectCAS[item.ID] = true
	eng := newTestEngine(store, engineCfg(0.06, 0.0601))

	stats, err := eng.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Conflicts)
	assert.Equal(t, 0, stats.Updated)
	assert.Empty(t, stats.Changes)
	assert.Empty(t, store.history)
}

// TestRunTick_ItemFailureIsIsolated: one item's store error is counted but
// the rest of the catalog still evolves.
func TestRunTick_ItemFailureIsIsolated(t *testing.T) {
	bad := activeItem(100, 50, 200, 1.0)
	good := activeItem(300, 100, 500, 1.0)
	store := newMemStore(bad, good)
	store.errCAS[bad.ID] = errors.New("connection reset")
	eng := newTestEngine(store, engineCfg(0.06, 0.0601))

	stats, err := eng.RunTick(context.Background())
	require.NoError(t, err, "per-item failures never abort the tick")

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Updated)
	assert.NotEqual(t, int64(300), store.currentPrice(good.ID), "healthy item should still move")
}

// TestRunTick_ListErrorAborts: only a failed active-list fetch fails the tick
// as a whole.
func TestRunTick_ListErrorAborts(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db down")
	eng := newTestEngine(store, engineCfg(0.01, 0.06))

	_, err := eng.RunTick(context.Background())
	require.Error(t, err)
}

// TestRunTick_BoundsHoldOverManyTicks runs a long simulation and checks the
// walk never leaves the band and always stays on the grid.
func TestRunTick_BoundsHoldOverManyTicks(t *testing.T) {
	item := activeItem(100, 50, 200, 2.5)
	store := newMemStore(item)
	eng := newTestEngine(store, engineCfg(0.01, 0.06))

	for i := 0; i < 500; i++ {
		_, err := eng.RunTick(context.Background())
		require.NoError(t, err)

		p := store.currentPrice(item.ID)
		require.Zerof(t, p%10, "tick %d: price %d off the step grid", i, p)
		// Both bounds sit on the grid here, so quantization cannot drift past them.
		require.GreaterOrEqualf(t, p, int64(50), "tick %d: price %d under floor", i, p)
		require.LessOrEqualf(t, p, int64(200), "tick %d: price %d over ceiling", i, p)
	}
}
