package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService serves catalog reads and the backoffice item mutations.
// It does not touch price evolution — that is the engine's job — but the
// manual price override goes through the same compare-and-set + history
// path so every committed price stays auditable.
type CatalogService struct {
	itemRepo *repository.ItemRepository
	cfg      *config.Config
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(itemRepo *repository.ItemRepository, cfg *config.Config) *CatalogService {
	return &CatalogService{itemRepo: itemRepo, cfg: cfg}
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// ListItems returns a page of items. includeInactive is a backoffice-only
// flag; the public API always passes false.
func (s *CatalogService) ListItems(ctx context.Context, limit, offset int, includeInactive bool) ([]*domain.Item, int, error) {
	items, total, err := s.itemRepo.List(ctx, limit, offset, includeInactive)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog_service.ListItems: %w", err)
	}
	return items, total, nil
}

// GetItem fetches one item.
func (s *CatalogService) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// GetHistory returns the most recent limit price points in chronological
// order. limit <= 0 falls back to the configured default; requests above the
// configured cap are clamped rather than rejected.
func (s *CatalogService) GetHistory(ctx context.Context, id uuid.UUID, limit int) ([]domain.PriceHistoryEntry, error) {
	if limit <= 0 {
		limit = s.cfg.Catalog.HistoryLimit
	}
	if limit > s.cfg.Catalog.MaxHistoryLimit {
		limit = s.cfg.Catalog.MaxHistoryLimit
	}
	// Verify the item exists so an unknown id is a 404, not an empty list.
	if _, err := s.itemRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.itemRepo.ListHistory(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog_service.GetHistory: %w", err)
	}
	return entries, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Backoffice mutations
// ──────────────────────────────────────────────────────────────────────────────

// CreateItem seeds a new catalog entry. The starting price must sit inside
// the band and on the step grid so the engine's invariants hold from the
// first tick.
func (s *CatalogService) CreateItem(ctx context.Context, name string, price, floor, ceiling int64, volatility decimal.Decimal) (*domain.Item, error) {
	if floor > ceiling {
		return nil, domain.ErrInvalidBounds
	}
	if price < floor || price > ceiling {
		return nil, domain.ErrInvalidBounds
	}
	if price%s.cfg.Engine.PriceStep != 0 {
		return nil, fmt.Errorf("%w: price %d is not a multiple of step %d",
			domain.ErrInvalidBounds, price, s.cfg.Engine.PriceStep)
	}
	if volatility.IsNegative() {
		return nil, fmt.Errorf("%w: volatility must be >= 0", domain.ErrInvalidBounds)
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:              uuid.New(),
		Name:            name,
		CurrentPrice:    price,
		FloorPrice:      floor,
		CeilingPrice:    ceiling,
		VolatilityIndex: volatility,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("catalog_service.CreateItem: %w", err)
	}
	// Seed the history with the opening price so charts start non-empty.
	if err := s.itemRepo.AppendHistory(ctx, item.ID, price, now); err != nil {
		return nil, fmt.Errorf("catalog_service.CreateItem: seed history: %w", err)
	}
	return item, nil
}

// UpdateBounds changes the floor/ceiling band. The current price is not
// forced into the new band here; the engine clamps it on the next tick.
func (s *CatalogService) UpdateBounds(ctx context.Context, id uuid.UUID, floor, ceiling int64) error {
	if floor > ceiling || floor < 0 {
		return domain.ErrInvalidBounds
	}
	return s.itemRepo.SetBounds(ctx, id, floor, ceiling)
}

// UpdateVolatility changes the per-item volatility multiplier.
func (s *CatalogService) UpdateVolatility(ctx context.Context, id uuid.UUID, volatility decimal.Decimal) error {
	if volatility.IsNegative() {
		return fmt.Errorf("%w: volatility must be >= 0", domain.ErrInvalidBounds)
	}
	return s.itemRepo.SetVolatility(ctx, id, volatility)
}

// SetActive soft-activates or soft-deactivates an item.
func (s *CatalogService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.itemRepo.SetActive(ctx, id, active)
}

// SetPrice is the manual admin override. It rides the same compare-and-set
// the engine uses, so a concurrent tick cannot be silently overwritten, and
// it appends a history entry like any other committed change.
func (s *CatalogService) SetPrice(ctx context.Context, id uuid.UUID, newPrice int64) error {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if newPrice < item.FloorPrice || newPrice > item.CeilingPrice {
		return domain.ErrInvalidBounds
	}
	if newPrice%s.cfg.Engine.PriceStep != 0 {
		return fmt.Errorf("%w: price %d is not a multiple of step %d",
			domain.ErrInvalidBounds, newPrice, s.cfg.Engine.PriceStep)
	}
	if newPrice == item.CurrentPrice {
		return nil
	}

	applied, err := s.itemRepo.CompareAndSetPrice(ctx, id, item.CurrentPrice, newPrice)
	if err != nil {
		return fmt.Errorf("catalog_service.SetPrice: %w", err)
	}
	if !applied {
		return domain.ErrPriceConflict
	}
	if err := s.itemRepo.AppendHistory(ctx, id, newPrice, time.Now().UTC()); err != nil {
		return fmt.Errorf("catalog_service.SetPrice: append history: %w", err)
	}
	return nil
}
