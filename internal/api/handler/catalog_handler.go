package handler

import (
	"net/http"
	"strconv"

	"github.com/evetabi/bazaar/internal/domain"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves the public item catalog and price history endpoints.
type CatalogHandler struct {
	catalogSvc *service.CatalogService
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalogSvc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListItems godoc
// GET /api/items?page=1&limit=20
// Returns active items only; the storefront never sees delisted entries.
func (h *CatalogHandler) ListItems(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	items, total, err := h.catalogSvc.ListItems(c.Request.Context(), limit, offset, false)
	if err != nil {
		if domain.IsTransient(err) {
			respondError(c, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE", "catalog temporarily unavailable")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch items")
		return
	}

	summaries := make([]domain.ItemSummary, 0, len(items))
	for _, it := range items {
		summaries = append(summaries, it.ToSummary())
	}
	respondList(c, summaries, total, page, limit)
}

// GetByID godoc
// GET /api/items/:id
func (h *CatalogHandler) GetByID(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ITEM_ID", "invalid item id")
		return
	}

	item, err := h.catalogSvc.GetItem(c.Request.Context(), itemID)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_ITEM_NOT_FOUND", "item not found")
		case domain.IsTransient(err):
			respondError(c, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE", "catalog temporarily unavailable")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch item")
		}
		return
	}
	respondSuccess(c, http.StatusOK, item)
}

// GetHistory godoc
// GET /api/items/:id/history?limit=20
// Entries come back oldest-first, ready for charting.
func (h *CatalogHandler) GetHistory(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ITEM_ID", "invalid item id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	history, err := h.catalogSvc.GetHistory(c.Request.Context(), itemID, limit)
	if err != nil {
		switch {
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_ITEM_NOT_FOUND", "item not found")
		case domain.IsTransient(err):
			respondError(c, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE", "catalog temporarily unavailable")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch history")
		}
		return
	}
	respondSuccess(c, http.StatusOK, history)
}

// ── Shared query helpers ─────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
