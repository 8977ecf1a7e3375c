package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ──────────────────────────────────────────────────────────────────────────────
// OrderService — the order settlement engine
// ──────────────────────────────────────────────────────────────────────────────

// OrderService validates and commits buy transactions. The order row and its
// single line item are written in one PostgreSQL transaction; the item row is
// locked (FOR UPDATE) for the duration, so the price re-check and the insert
// cannot interleave with an evolution-engine write on the same item.
type OrderService struct {
	db        *sqlx.DB
	orderRepo *repository.OrderRepository
	itemRepo  *repository.ItemRepository
	cfg       *config.Config
}

// NewOrderService creates an OrderService.
func NewOrderService(
	db *sqlx.DB,
	orderRepo *repository.OrderRepository,
	itemRepo *repository.ItemRepository,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		db:        db,
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		cfg:       cfg,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceOrder
// ──────────────────────────────────────────────────────────────────────────────

// PlaceOrder settles a buy at the price the buyer observed.
//
// The locked price is re-validated against the stored price inside the same
// transaction that writes the order: when they diverge the request is
// rejected with a PriceChangedError carrying the fresh price, so the buyer
// can re-confirm. Stale prices are never silently honoured.
//
// Once the transaction begins it runs to completion — commit or full
// rollback; no partial state (an order without its line) is ever visible.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.OrderReceipt, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.LockedPrice <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.DB.QueryTimeout)
	defer cancel()

	// ── 2. Begin transaction ─────────────────────────────────────────────────
	tx, err := s.db.BeginTxx(opCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("order_service.PlaceOrder: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 3. Lock the item row and re-check the price ──────────────────────────
	item, err := s.itemRepo.GetPriceForUpdate(opCtx, tx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		err = domain.ErrItemInactive
		return nil, err
	}
	if item.CurrentPrice != req.LockedPrice {
		err = &domain.PriceChangedError{
			ItemID:       item.ID.String(),
			LockedPrice:  req.LockedPrice,
			CurrentPrice: item.CurrentPrice,
		}
		return nil, err
	}

	// ── 4. Build the order + line (locked price == live price here) ──────────
	now := time.Now().UTC()
	subtotal := req.LockedPrice * req.Quantity
	order := &domain.Order{
		ID:          uuid.New(),
		BuyerID:     req.BuyerID,
		TotalAmount: subtotal,
		Status:      domain.OrderStatusConfirmed,
		CreatedAt:   now,
	}
	line := &domain.OrderLineItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		PriceAtSale: req.LockedPrice,
		Subtotal:    subtotal,
	}

	// ── 5. Persist both rows in the same transaction ─────────────────────────
	if err = s.orderRepo.Create(opCtx, tx, order); err != nil {
		return nil, fmt.Errorf("order_service.PlaceOrder: create order: %w", err)
	}
	if err = s.orderRepo.CreateLineItem(opCtx, tx, line); err != nil {
		return nil, fmt.Errorf("order_service.PlaceOrder: create line: %w", err)
	}

	// ── 6. Commit ─────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("order_service.PlaceOrder: commit: %w", err)
	}

	receipt := domain.NewReceipt(order, line)
	return &receipt, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyOrders returns paginated orders for a buyer.
func (s *OrderService) GetMyOrders(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	orders, err := s.orderRepo.GetByBuyerID(ctx, buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("order_service.GetMyOrders: %w", err)
	}
	return orders, nil
}

// GetOrderByID returns a single order with its line, only if it belongs to
// buyerID.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID, buyerID uuid.UUID) (*domain.OrderReceipt, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, domain.ErrForbidden
	}
	line, err := s.orderRepo.GetLineByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	receipt := domain.NewReceipt(order, line)
	return &receipt, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Backoffice
// ──────────────────────────────────────────────────────────────────────────────

// ListOrders returns paginated orders filtered by optional status.
func (s *OrderService) ListOrders(ctx context.Context, limit, offset int, status string) ([]*domain.Order, int, error) {
	return s.orderRepo.List(ctx, limit, offset, status)
}

// SetOrderStatus transitions a CONFIRMED order to CANCELLED or FULFILLED.
func (s *OrderService) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	if status != domain.OrderStatusCancelled && status != domain.OrderStatusFulfilled {
		return domain.ErrInvalidStatus
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("order_service.SetOrderStatus: %w", err)
	}
	return nil
}
