package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/evetabi/bazaar/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// OrderRepository handles all database operations for Orders and their lines.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order inside an existing transaction. The settlement
// engine always calls this together with CreateLineItem in the same
// transaction; neither row is ever visible without the other.
func (r *OrderRepository) Create(ctx context.Context, tx *sqlx.Tx, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, buyer_id, total_amount, status, created_at)
		VALUES (:id, :buyer_id, :total_amount, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, o); err != nil {
		return wrapStoreErr("order_repo.Create", err)
	}
	return nil
}

// CreateLineItem inserts the order's single line inside an existing transaction.
func (r *OrderRepository) CreateLineItem(ctx context.Context, tx *sqlx.Tx, l *domain.OrderLineItem) error {
	query := `
		INSERT INTO order_items (id, order_id, item_id, quantity, price_at_sale, subtotal)
		VALUES (:id, :order_id, :item_id, :quantity, :price_at_sale, :subtotal)`
	if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
		return wrapStoreErr("order_repo.CreateLineItem", err)
	}
	return nil
}

// GetByID fetches an order by its primary key.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, wrapStoreErr("order_repo.GetByID", err)
	}
	return &o, nil
}

// GetLineByOrderID fetches the single line item belonging to an order.
func (r *OrderRepository) GetLineByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.OrderLineItem, error) {
	var l domain.OrderLineItem
	err := r.db.GetContext(ctx, &l, `SELECT * FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, wrapStoreErr("order_repo.GetLineByOrderID", err)
	}
	return &l, nil
}

// GetByBuyerID returns a buyer's order history, newest-first, paginated.
func (r *OrderRepository) GetByBuyerID(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		buyerID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("order_repo.GetByBuyerID", err)
	}
	return orders, nil
}

// List returns a paginated slice of orders filtered by optional status.
// status="" returns all statuses. Returns (orders, totalCount, error).
func (r *OrderRepository) List(ctx context.Context, limit, offset int, status string) ([]*domain.Order, int, error) {
	var orders []*domain.Order
	var total int

	if status != "" {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM orders WHERE status = $1`, status); err != nil {
			return nil, 0, wrapStoreErr("order_repo.List count", err)
		}
		if err := r.db.SelectContext(ctx, &orders,
			`SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset); err != nil {
			return nil, 0, wrapStoreErr("order_repo.List select", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders`); err != nil {
			return nil, 0, wrapStoreErr("order_repo.List count", err)
		}
		if err := r.db.SelectContext(ctx, &orders,
			`SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, wrapStoreErr("order_repo.List select", err)
		}
	}
	return orders, total, nil
}

// UpdateStatus moves a CONFIRMED order to CANCELLED or FULFILLED.
// Only touches orders still in CONFIRMED so repeated admin clicks cannot
// re-transition; returns ErrInvalidStatus when no row matched.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status = 'CONFIRMED'`,
		string(status), id)
	if err != nil {
		return wrapStoreErr("order_repo.UpdateStatus", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish a missing order from a forbidden transition.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrInvalidStatus
	}
	return nil
}
