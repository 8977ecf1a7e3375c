package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/evetabi/bazaar/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the admin overview and engine controls.
type DashboardHandler struct {
	catalogSvc *service.CatalogService
	orderSvc   *service.OrderService
	engineSvc  *service.EngineService
	hub        *ws.Hub
	cfg        *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	catalogSvc *service.CatalogService,
	orderSvc *service.OrderService,
	engineSvc *service.EngineService,
	hub *ws.Hub,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		catalogSvc: catalogSvc,
		orderSvc:   orderSvc,
		engineSvc:  engineSvc,
		hub:        hub,
		cfg:        cfg,
	}
}

// Dashboard godoc
// GET /admin/dashboard
// One-screen overview: catalog size, order volume, live connections, engine
// settings.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	_, totalItems, err := h.catalogSvc.ListItems(ctx, 1, 0, true)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	_, totalActive, _ := h.catalogSvc.ListItems(ctx, 1, 0, false)
	_, totalOrders, _ := h.orderSvc.ListOrders(ctx, 1, 0, "")
	_, confirmedOrders, _ := h.orderSvc.ListOrders(ctx, 1, 0, "CONFIRMED")

	connected := 0
	if h.hub != nil {
		connected = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"items": gin.H{
			"total":  totalItems,
			"active": totalActive,
		},
		"orders": gin.H{
			"total":     totalOrders,
			"confirmed": confirmedOrders,
		},
		"ws_clients": connected,
		"engine": gin.H{
			"tick_interval":  h.cfg.Engine.TickInterval.String(),
			"price_step":     h.cfg.Engine.PriceStep,
			"min_change_pct": h.cfg.Engine.MinChangePct,
			"max_change_pct": h.cfg.Engine.MaxChangePct,
		},
		"generated_at": time.Now().UTC(),
	})
}

// TriggerTick godoc
// POST /admin/engine/tick
// Runs one evolution pass immediately, outside the scheduler cadence. Handy
// for smoke-testing a new item's bounds without waiting for the next tick.
func (h *DashboardHandler) TriggerTick(c *gin.Context) {
	stats, err := h.engineSvc.RunTick(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_TICK_FAILED", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}
