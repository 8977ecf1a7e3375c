package backoffice

import (
	"net/http"
	"strings"

	"github.com/evetabi/bazaar/internal/backoffice/handler"
	"github.com/evetabi/bazaar/internal/config"
	"github.com/evetabi/bazaar/internal/repository"
	"github.com/evetabi/bazaar/internal/service"
	"github.com/evetabi/bazaar/internal/ws"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc    *service.AuthService
	CatalogSvc *service.CatalogService
	OrderSvc   *service.OrderService
	EngineSvc  *service.EngineService
	UserRepo   *repository.UserRepository
	OrderRepo  *repository.OrderRepository
	Hub        *ws.Hub
	Cfg        *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine on its own port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.CatalogSvc, deps.OrderSvc, deps.EngineSvc, deps.Hub, deps.Cfg)
	itemH := handler.NewItemAdminHandler(deps.CatalogSvc, deps.Hub, deps.Cfg)
	orderH := handler.NewOrderAdminHandler(deps.OrderSvc, deps.OrderRepo, deps.Cfg)
	userH := handler.NewUserAdminHandler(deps.UserRepo, deps.OrderRepo, deps.Cfg)

	jwtMW := adminJWTMiddleware(deps.AuthSvc)

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		admin.GET("/dashboard", dashH.Dashboard)
		admin.POST("/engine/tick", dashH.TriggerTick)

		// Items
		i := admin.Group("/items")
		{
			i.GET("", itemH.List)
			i.POST("", itemH.Create)
			i.GET("/:id", itemH.Detail)
			i.POST("/:id/price", itemH.SetPrice)
			i.POST("/:id/bounds", itemH.SetBounds)
			i.POST("/:id/volatility", itemH.SetVolatility)
			i.POST("/:id/activate", itemH.Activate)
			i.POST("/:id/deactivate", itemH.Deactivate)
		}

		// Orders
		o := admin.Group("/orders")
		{
			o.GET("", orderH.List)
			o.GET("/:id", orderH.Detail)
			o.POST("/:id/status", orderH.SetStatus)
		}

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", userH.Suspend)
			u.POST("/:id/activate", userH.Activate)
			u.POST("/:id/role", userH.SetRole)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT and requires the caller to have a
// backoffice-capable role (admin, ops, readonly).
func adminJWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		backofficeRoles := map[string]bool{
			"admin":    true,
			"ops":      true,
			"readonly": true,
		}
		if !backofficeRoles[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		// Mutating endpoints require more than readonly
		if claims.Role == "readonly" && c.Request.Method != http.MethodGet {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "readonly role cannot modify"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}
