package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/evetabi/bazaar/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemAdminHandler serves /admin/items endpoints.
type ItemAdminHandler struct {
	catalogSvc *service.CatalogService
	hub        *ws.Hub
	cfg        *config.Config
}

// NewItemAdminHandler creates an ItemAdminHandler.
func NewItemAdminHandler(catalogSvc *service.CatalogService, hub *ws.Hub, cfg *config.Config) *ItemAdminHandler {
	return &ItemAdminHandler{catalogSvc: catalogSvc, hub: hub, cfg: cfg}
}

// List godoc
// GET /admin/items?page=1&limit=50
// Unlike the storefront list this includes delisted items.
func (h *ItemAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	items, total, err := h.catalogSvc.ListItems(c.Request.Context(), limit, offset, true)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, items, total, page, limit)
}

// Detail godoc
// GET /admin/items/:id
func (h *ItemAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid item id")
		return
	}

	ctx := c.Request.Context()
	item, err := h.catalogSvc.GetItem(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	history, _ := h.catalogSvc.GetHistory(ctx, id, h.cfg.Catalog.MaxHistoryLimit)

	respondSuccess(c, http.StatusOK, gin.H{
		"item":    item,
		"history": history,
	})
}

// Create godoc
// POST /admin/items
// Body: {"name":"Rune Sword","price":100,"floor_price":50,"ceiling_price":200,"volatility_index":"1.0"}
func (h *ItemAdminHandler) Create(c *gin.Context) {
	var body struct {
		Name            string `json:"name"             binding:"required,min=1,max=120"`
		Price           int64  `json:"price"            binding:"required"`
		FloorPrice      int64  `json:"floor_price"      binding:"required"`
		CeilingPrice    int64  `json:"ceiling_price"    binding:"required"`
		VolatilityIndex string `json:"volatility_index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	volatility, err := decimal.NewFromString(body.VolatilityIndex)
	if err != nil || volatility.IsNegative() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_VOLATILITY", "volatility_index must be a non-negative decimal")
		return
	}

	item, err := h.catalogSvc.CreateItem(c.Request.Context(), body.Name, body.Price, body.FloorPrice, body.CeilingPrice, volatility)
	if err != nil {
		if domain.IsInvalidInput(err) || errors.Is(err, domain.ErrInvalidBounds) {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, item)
}

// SetPrice godoc
// POST /admin/items/:id/price
// Body: {"price": 150}
// Manual override; goes through the same compare-and-set as the engine, so a
// concurrent tick can win and the request comes back 409.
func (h *ItemAdminHandler) SetPrice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid item id")
		return
	}
	var body struct {
		Price int64 `json:"price" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err = h.catalogSvc.SetPrice(c.Request.Context(), id, body.Price); err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrPriceConflict):
			respondError(c, http.StatusConflict, "ERR_PRICE_CONFLICT", "price moved concurrently, re-read and retry")
		case domain.IsInvalidInput(err):
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}

	h.notifyItemChanged(id, "price")
	respondSuccess(c, http.StatusOK, gin.H{"item_id": id, "price": body.Price})
}

// SetBounds godoc
// POST /admin/items/:id/bounds
// Body: {"floor_price": 50, "ceiling_price": 250}
func (h *ItemAdminHandler) SetBounds(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid item id")
		return
	}
	var body struct {
		FloorPrice   int64 `json:"floor_price"   binding:"required"`
		CeilingPrice int64 `json:"ceiling_price" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err = h.catalogSvc.UpdateBounds(c.Request.Context(), id, body.FloorPrice, body.CeilingPrice); err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrInvalidBounds):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_BOUNDS", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}

	h.notifyItemChanged(id, "bounds")
	respondSuccess(c, http.StatusOK, gin.H{
		"item_id":       id,
		"floor_price":   body.FloorPrice,
		"ceiling_price": body.CeilingPrice,
	})
}

// SetVolatility godoc
// POST /admin/items/:id/volatility
// Body: {"volatility_index": "1.5"}
func (h *ItemAdminHandler) SetVolatility(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid item id")
		return
	}
	var body struct {
		VolatilityIndex string `json:"volatility_index" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	volatility, err := decimal.NewFromString(body.VolatilityIndex)
	if err != nil || volatility.IsNegative() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_VOLATILITY", "volatility_index must be a non-negative decimal")
		return
	}

	if err = h.catalogSvc.UpdateVolatility(c.Request.Context(), id, volatility); err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	h.notifyItemChanged(id, "volatility")
	respondSuccess(c, http.StatusOK, gin.H{"item_id": id, "volatility_index": volatility})
}

// Activate godoc
// POST /admin/items/:id/activate
func (h *ItemAdminHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// POST /admin/items/:id/deactivate
// Delisted items stop evolving and reject new orders but keep their history.
func (h *ItemAdminHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ItemAdminHandler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid item id")
		return
	}

	if err = h.catalogSvc.SetActive(c.Request.Context(), id, active); err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	h.notifyItemChanged(id, "active")
	respondSuccess(c, http.StatusOK, gin.H{"item_id": id, "is_active": active})
}

// notifyItemChanged pushes an item-changed event to storefront clients.
func (h *ItemAdminHandler) notifyItemChanged(id uuid.UUID, field string) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastItemChanged(ws.ItemChangedMessage{
		Type:      ws.MsgTypeItemChanged,
		ItemID:    id,
		Field:     field,
		Timestamp: time.Now().UTC(),
	})
}
