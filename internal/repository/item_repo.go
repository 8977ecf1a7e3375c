package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/bazaar/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ItemRepository is the pricing store: the durable record of each item's
// current price, bounds, volatility, and its append-only price history.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item row (catalog seeding / backoffice).
func (r *ItemRepository) Create(ctx context.Context, i *domain.Item) error {
	query := `
		INSERT INTO items
			(id, name, current_price, floor_price, ceiling_price, volatility_index, is_active, created_at, updated_at)
		VALUES
			(:id, :name, :current_price, :floor_price, :ceiling_price, :volatility_index, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, i); err != nil {
		return wrapStoreErr("item_repo.Create", err)
	}
	return nil
}

// GetByID fetches an item by its primary key.
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var i domain.Item
	err := r.db.GetContext(ctx, &i, `SELECT * FROM items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, wrapStoreErr("item_repo.GetByID", err)
	}
	return &i, nil
}

// GetActive returns every item the evolution engine should touch this tick.
func (r *ItemRepository) GetActive(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM items WHERE is_active = TRUE ORDER BY created_at ASC`)
	if err != nil {
		return nil, wrapStoreErr("item_repo.GetActive", err)
	}
	return items, nil
}

// List returns a paginated slice of items, optionally including inactive ones.
// Returns (items, totalCount, error).
func (r *ItemRepository) List(ctx context.Context, limit, offset int, includeInactive bool) ([]*domain.Item, int, error) {
	var items []*domain.Item
	var total int

	if includeInactive {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM items`); err != nil {
			return nil, 0, wrapStoreErr("item_repo.List count", err)
		}
		if err := r.db.SelectContext(ctx, &items,
			`SELECT * FROM items ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, wrapStoreErr("item_repo.List select", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM items WHERE is_active = TRUE`); err != nil {
			return nil, 0, wrapStoreErr("item_repo.List count", err)
		}
		if err := r.db.SelectContext(ctx, &items,
			`SELECT * FROM items WHERE is_active = TRUE ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, wrapStoreErr("item_repo.List select", err)
		}
	}
	return items, total, nil
}

// CompareAndSetPrice atomically writes newPrice only if the stored price still
// equals expected. Returns (true, nil) when the write applied and (false, nil)
// when the guard failed — the caller decides whether a lost race is an error.
// The conditional UPDATE makes read-verify-write a single statement, so no
// explicit row lock is needed here.
func (r *ItemRepository) CompareAndSetPrice(ctx context.Context, id uuid.UUID, expected, newPrice int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET current_price = $1, updated_at = now()
		WHERE id = $2 AND current_price = $3`,
		newPrice, id, expected)
	if err != nil {
		return false, wrapStoreErr("item_repo.CompareAndSetPrice", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapStoreErr("item_repo.CompareAndSetPrice rows", err)
	}
	return n == 1, nil
}

// GetPriceForUpdate reads the current price inside an existing transaction,
// taking a row lock that is held until the transaction ends. The settlement
// engine uses this so its price re-check and order insert cannot interleave
// with an engine compare-and-set on the same row.
func (r *ItemRepository) GetPriceForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Item, error) {
	var i domain.Item
	err := tx.GetContext(ctx, &i, `SELECT * FROM items WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, wrapStoreErr("item_repo.GetPriceForUpdate", err)
	}
	return &i, nil
}

// AppendHistory writes one immutable price history row.
func (r *ItemRepository) AppendHistory(ctx context.Context, id uuid.UUID, price int64, recordedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_history (item_id, price, recorded_at)
		VALUES ($1, $2, $3)`,
		id, price, recordedAt)
	if err != nil {
		return wrapStoreErr("item_repo.AppendHistory", err)
	}
	return nil
}

// ListHistory returns the most recent limit entries for an item in
// chronological (oldest-first) order. The store appends newest-last, so the
// query selects newest-first and the slice is reversed before returning.
func (r *ItemRepository) ListHistory(ctx context.Context, id uuid.UUID, limit int) ([]domain.PriceHistoryEntry, error) {
	var entries []domain.PriceHistoryEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, item_id, price, recorded_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`,
		id, limit)
	if err != nil {
		return nil, wrapStoreErr("item_repo.ListHistory", err)
	}
	for l, r := 0, len(entries)-1; l < r; l, r = l+1, r-1 {
		entries[l], entries[r] = entries[r], entries[l]
	}
	return entries, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Backoffice mutations — bounds, volatility, active flag, manual price
// ──────────────────────────────────────────────────────────────────────────────

// SetBounds updates the floor and ceiling of an item. The caller must have
// validated floor <= ceiling; the engine clamps into the new band on its next
// tick rather than the price being adjusted here.
func (r *ItemRepository) SetBounds(ctx context.Context, id uuid.UUID, floor, ceiling int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET floor_price = $1, ceiling_price = $2, updated_at = now()
		WHERE id = $3`,
		floor, ceiling, id)
	if err != nil {
		return wrapStoreErr("item_repo.SetBounds", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// SetVolatility updates the per-item volatility multiplier.
func (r *ItemRepository) SetVolatility(ctx context.Context, id uuid.UUID, volatility decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET volatility_index = $1, updated_at = now()
		WHERE id = $2`,
		volatility, id)
	if err != nil {
		return wrapStoreErr("item_repo.SetVolatility", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// SetActive toggles the soft-deactivation flag.
func (r *ItemRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET is_active = $1, updated_at = now()
		WHERE id = $2`,
		active, id)
	if err != nil {
		return wrapStoreErr("item_repo.SetActive", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Error wrapping
// ──────────────────────────────────────────────────────────────────────────────

// wrapStoreErr tags timeouts and cancellations as transient so callers can
// distinguish "retry the whole operation" from everything else.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
