package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/tombola/internal/admin"
	"github.com/playmatatu/tombola/internal/auth"
	"github.com/playmatatu/tombola/internal/config"
	"github.com/playmatatu/tombola/internal/tombola"
)

// GetRuntimeConfig returns all runtime config entries
func GetRuntimeConfig(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := admin.GetAllRuntimeConfig(db)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch runtime config: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch config"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"configs": configs})
	}
}

// UpdateRuntimeConfig updates a single runtime config value and applies the
// drawing timings to the controller for the next spin
func UpdateRuntimeConfig(db *sqlx.DB, cfg *config.Config, ctrl *tombola.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetString(auth.ContextOperator)
		key := c.Param("key")

		var req struct {
			Value string `json:"value" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Value is required"})
			return
		}

		details := map[string]interface{}{"key": key, "value": req.Value}
		if err := admin.UpdateRuntimeConfigValue(db, key, req.Value, operator); err != nil {
			log.Printf("[ADMIN] Failed to update config %s: %v", key, err)
			audit(db, c, "update_config", details, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Re-apply runtime config to in-memory config
		if err := admin.ApplyRuntimeConfigToConfig(db, cfg); err != nil {
			log.Printf("[ADMIN] Warning: failed to apply runtime config: %v", err)
		}
		ctrl.SetTimings(
			time.Duration(cfg.SpinDurationMs)*time.Millisecond,
			time.Duration(cfg.WinnerWaitMs)*time.Millisecond,
		)

		audit(db, c, "update_config", details, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
