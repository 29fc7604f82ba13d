package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/tombola/internal/tombola"
)

// GetConfig returns the values a renderer needs to draw the drum
func GetConfig(ctrl *tombola.Controller, frameIntervalMs int) gin.HandlerFunc {
	return func(c *gin.Context) {
		spin, wait := ctrl.Timings()
		t := tombola.DefaultTuning()
		c.JSON(http.StatusOK, gin.H{
			"mode":              ctrl.Mode(),
			"spin_duration_ms":  spin.Milliseconds(),
			"winner_wait_ms":    wait.Milliseconds(),
			"frame_interval_ms": frameIntervalMs,
			"enclosure_radius":  t.EnclosureRadius,
			"wall_margin":       t.WallMargin,
			"ball_radius":       tombola.BallRadius,
			"palette":           tombola.Palette,
		})
	}
}
