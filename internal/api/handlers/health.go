package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/tombola/internal/tombola"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(ctrl *tombola.Controller, hub ViewerCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"status":  "ok",
			"service": "tombola-api",
			"version": version,
			"uptime":  time.Since(startTime).String(),
			"mode":    ctrl.Mode(),
			"loops": gin.H{
				"started": ctrl.Loop().Started(),
				"running": ctrl.Loop().Running(),
			},
		}
		if hub != nil {
			resp["viewers"] = hub.Count()
		}
		c.JSON(http.StatusOK, resp)
	}
}
