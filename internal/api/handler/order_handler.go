package handler

import (
	"errors"
	"net/http"

	"github.com/evetabi/bazaar/internal/api/middleware"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler serves order placement and lookup endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// PlaceOrder godoc
// POST /api/orders [JWT]
// Body: {"item_id":"uuid","quantity":3,"locked_price":100}
//
// locked_price is the price the buyer saw. If the item's price moved between
// display and submission the order is rejected with 409 and the fresh price,
// so the client can re-render and let the buyer decide again.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	buyerID := middleware.GetUserID(c)

	var body struct {
		ItemID      string `json:"item_id"      binding:"required"`
		Quantity    int64  `json:"quantity"     binding:"required"`
		LockedPrice int64  `json:"locked_price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	itemID, err := uuid.Parse(body.ItemID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ITEM_ID", "invalid item_id format")
		return
	}

	req := domain.PlaceOrderRequest{
		BuyerID:     buyerID,
		ItemID:      itemID,
		Quantity:    body.Quantity,
		LockedPrice: body.LockedPrice,
	}

	receipt, err := h.orderSvc.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		if pc, ok := domain.IsPriceChanged(err); ok {
			respondErrorData(c, http.StatusConflict, "ERR_PRICE_CHANGED", err.Error(), gin.H{
				"item_id":       pc.ItemID,
				"locked_price":  pc.LockedPrice,
				"current_price": pc.CurrentPrice,
			})
			return
		}
		switch {
		case errors.Is(err, domain.ErrInvalidQuantity):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_QUANTITY", err.Error())
		case errors.Is(err, domain.ErrInvalidPrice):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", err.Error())
		case errors.Is(err, domain.ErrItemInactive):
			respondError(c, http.StatusConflict, "ERR_ITEM_INACTIVE", err.Error())
		case errors.Is(err, domain.ErrItemNotFound):
			respondError(c, http.StatusNotFound, "ERR_ITEM_NOT_FOUND", err.Error())
		case domain.IsTransient(err):
			respondError(c, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE", "try again shortly")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not place order")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, receipt)
}

// GetMyOrders godoc
// GET /api/orders/my?page=1&limit=20 [JWT]
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	buyerID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	orders, err := h.orderSvc.GetMyOrders(c.Request.Context(), buyerID, limit, offset)
	if err != nil {
		if domain.IsTransient(err) {
			respondError(c, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE", "try again shortly")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch orders")
		return
	}
	respondList(c, orders, len(orders), page, limit)
}

// GetOrderByID godoc
// GET /api/orders/:id [JWT]
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	buyerID := middleware.GetUserID(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ORDER_ID", "invalid order id")
		return
	}

	receipt, err := h.orderSvc.GetOrderByID(c.Request.Context(), orderID, buyerID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this order does not belong to you")
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_ORDER_NOT_FOUND", "order not found")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch order")
		}
		return
	}
	respondSuccess(c, http.StatusOK, receipt)
}
