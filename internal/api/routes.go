package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/tombola/internal/api/handlers"
	"github.com/playmatatu/tombola/internal/auth"
	"github.com/playmatatu/tombola/internal/config"
	"github.com/playmatatu/tombola/internal/middleware"
	"github.com/playmatatu/tombola/internal/tombola"
	"github.com/playmatatu/tombola/internal/ws"
)

// Deps are the services the routes are wired to. DB, Stats, Draws and
// Validator may be nil.
type Deps struct {
	Config     *config.Config
	DB         *sqlx.DB
	Controller *tombola.Controller
	Hub        *ws.Hub
	Issuer     *auth.Issuer
	Stats      handlers.StatsSource
	Draws      handlers.DrawLister
	Validator  handlers.OperatorValidator
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	ctrl := d.Controller

	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	requireOperator := auth.Middleware(d.Issuer)

	var viewers handlers.ViewerCounter
	if d.Hub != nil {
		viewers = d.Hub
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(ctrl, viewers))
		v1.GET("/config", handlers.GetConfig(ctrl, cfg.FrameIntervalMs))

		authGroup := v1.Group("/auth")
		{
			if d.Validator != nil {
				authGroup.POST("/login", handlers.OperatorLogin(d.Validator, d.Issuer, d.DB))
			} else {
				authGroup.POST("/login", func(c *gin.Context) {
					c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operator accounts are not configured"})
				})
			}
			authGroup.GET("/me", requireOperator, handlers.OperatorMe())
		}

		t := v1.Group("/tombola")
		{
			t.GET("", handlers.GetSession(ctrl))
			t.GET("/balls", handlers.GetBalls(ctrl))
			t.GET("/winners", handlers.GetWinners(ctrl))
			t.GET("/categories", handlers.GetCategories(ctrl))
			t.GET("/stats", handlers.GetStats(d.Stats))
			t.GET("/draws", handlers.GetDraws(d.Draws))
			if d.Hub != nil {
				t.GET("/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(d.Hub, ctrl))
			}

			op := t.Group("", requireOperator)
			{
				op.POST("/participants", handlers.AddParticipant(ctrl, d.DB))
				op.DELETE("/participants/:id", handlers.RemoveParticipant(ctrl, d.DB))
				op.POST("/categories/refresh", handlers.RefreshCategories(ctrl))
				op.POST("/categories/:id/select", handlers.SelectCategory(ctrl, d.DB))
				op.POST("/spin", handlers.Spin(ctrl, d.DB))
				op.POST("/reset", handlers.Reset(ctrl, d.DB))
			}
		}

		if d.DB != nil {
			adm := v1.Group("/admin", requireOperator, auth.RequireRole("supervisor"))
			{
				adm.GET("/audit", handlers.GetAuditLogs(d.DB))
				adm.GET("/config", handlers.GetRuntimeConfig(d.DB))
				adm.PUT("/config/:key", handlers.UpdateRuntimeConfig(d.DB, cfg, ctrl))
			}
		}
	}
}
