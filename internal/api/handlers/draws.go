package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/tombola/internal/models"
)

// DrawLister reads persisted draws.
type DrawLister interface {
	Recent(ctx context.Context, limit, offset int) ([]models.Draw, int, error)
}

type drawResp struct {
	ID            int64     `json:"id"`
	Generation    int64     `json:"generation"`
	Mode          string    `json:"mode"`
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	ColorTag      string    `json:"color"`
	Category      *int      `json:"category"`
	DrawnAt       time.Time `json:"drawn_at"`
}

// GetDraws returns the persisted draw history, newest first
func GetDraws(draws DrawLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		if draws == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Draw history is not configured"})
			return
		}
		limit, offset := pagination(c, 25, 200)

		rows, total, err := draws.Recent(c.Request.Context(), limit, offset)
		if err != nil {
			log.Printf("[API] Failed to fetch draws: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch draws"})
			return
		}

		resp := make([]drawResp, 0, len(rows))
		for _, d := range rows {
			resp = append(resp, drawResp{
				ID:            d.ID,
				Generation:    d.Generation,
				Mode:          d.Mode,
				ParticipantID: d.ParticipantID,
				DisplayName:   d.DisplayName,
				ColorTag:      d.ColorTag,
				Category:      d.Category(),
				DrawnAt:       d.DrawnAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"draws": resp, "total": total, "limit": limit, "offset": offset})
	}
}
