package handler

import (
	"errors"
	"net/http"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/repository"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderAdminHandler serves /admin/orders endpoints.
type OrderAdminHandler struct {
	orderSvc  *service.OrderService
	orderRepo *repository.OrderRepository
	cfg       *config.Config
}

// NewOrderAdminHandler creates an OrderAdminHandler.
func NewOrderAdminHandler(
	orderSvc *service.OrderService,
	orderRepo *repository.OrderRepository,
	cfg *config.Config,
) *OrderAdminHandler {
	return &OrderAdminHandler{orderSvc: orderSvc, orderRepo: orderRepo, cfg: cfg}
}

// List godoc
// GET /admin/orders?status=CONFIRMED&page=1&limit=50
func (h *OrderAdminHandler) List(c *gin.Context) {
	status := c.Query("status")
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	orders, total, err := h.orderSvc.ListOrders(c.Request.Context(), limit, offset, status)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, orders, total, page, limit)
}

// Detail godoc
// GET /admin/orders/:id
func (h *OrderAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid order id")
		return
	}

	ctx := c.Request.Context()
	order, err := h.orderRepo.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	line, _ := h.orderRepo.GetLineByOrderID(ctx, id)

	respondSuccess(c, http.StatusOK, gin.H{
		"order": order,
		"line":  line,
	})
}

// SetStatus godoc
// POST /admin/orders/:id/status
// Body: {"status": "CANCELLED"}  (or "FULFILLED")
// Only CONFIRMED orders can transition; anything else comes back 409.
func (h *OrderAdminHandler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid order id")
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err = h.orderSvc.SetOrderStatus(c.Request.Context(), id, domain.OrderStatus(body.Status)); err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrInvalidStatus):
			respondError(c, http.StatusConflict, "ERR_INVALID_TRANSITION", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"order_id": id, "status": body.Status})
}
