package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/tombola/internal/registry"
	"github.com/playmatatu/tombola/internal/tombola"
)

// StatsSource reports per-category ticket counts.
type StatsSource interface {
	Stats(ctx context.Context) ([]registry.CategoryStats, error)
}

const registryRequestTimeout = 15 * time.Second

// GetSession returns the current drawing snapshot
func GetSession(ctrl *tombola.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := ctrl.Session()
		c.Header("X-Tombola-Version", strconv.FormatUint(s.Version, 10))
		c.JSON(http.StatusOK, s)
	}
}

// GetBalls returns the latest ball positions
func GetBalls(ctrl *tombola.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Balls())
	}
}

// GetWinners returns this session's winners, oldest first
func GetWinners(ctrl *tombola.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := ctrl.Session()
		c.JSON(http.StatusOK, gin.H{
			"winner":  s.Winner,
			"winners": s.WinnersHistory,
			"total":   len(s.WinnersHistory),
		})
	}
}

// GetCategories returns the loaded registry categories
func GetCategories(ctrl *tombola.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctrl.Mode() != tombola.ModeRegistry {
			respondError(c, tombola.ErrRegistryModeOnly)
			return
		}
		s := ctrl.Session()
		c.JSON(http.StatusOK, gin.H{
			"categories": ctrl.Categories(),
			"selected":   s.SelectedCategory,
		})
	}
}

// GetStats returns ticket counts per category straight from the registry
func GetStats(stats StatsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if stats == nil {
			respondError(c, tombola.ErrRegistryModeOnly)
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), registryRequestTimeout)
		defer cancel()

		out, err := stats.Stats(ctx)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": out})
	}
}

// AddParticipant adds a manual participant
func AddParticipant(ctrl *tombola.Controller, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		p, err := ctrl.AddParticipant(req.Name)
		if err != nil {
			respondError(c, err)
			return
		}

		audit(db, c, "add_participant", map[string]interface{}{"id": p.ID, "name": p.DisplayName}, true)
		c.JSON(http.StatusCreated, p)
	}
}

// RemoveParticipant removes a manual participant
func RemoveParticipant(ctrl *tombola.Controller, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := ctrl.RemoveParticipant(id); err != nil {
			respondError(c, err)
			return
		}

		audit(db, c, "remove_participant", map[string]interface{}{"id": id}, true)
		c.Status(http.StatusNoContent)
	}
}

// RefreshCategories reloads categories from the ticket registry
func RefreshCategories(ctrl *tombola.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), registryRequestTimeout)
		defer cancel()

		if err := ctrl.LoadCategories(ctx); err != nil {
			if errors.Is(err, tombola.ErrRegistryModeOnly) {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": ctrl.Categories()})
	}
}

// SelectCategory makes a category the eligible pool
func SelectCategory(ctrl *tombola.Controller, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
			return
		}

		if err := ctrl.SelectCategory(id); err != nil {
			respondError(c, err)
			return
		}

		audit(db, c, "select_category", map[string]interface{}{"category": id}, true)
		c.JSON(http.StatusOK, ctrl.Session())
	}
}

// Spin starts a drawing. A request while one is in flight is accepted but
// ignored.
func Spin(ctrl *tombola.Controller, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		started, err := ctrl.Spin()
		if err != nil {
			var elig *tombola.EligibilityError
			if errors.As(err, &elig) {
				audit(db, c, "spin", map[string]interface{}{"reason": elig.Reason.Error()}, false)
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": elig.Reason.Error(), "started": false})
				return
			}
			respondError(c, err)
			return
		}

		s := ctrl.Session()
		if !started {
			c.JSON(http.StatusOK, gin.H{"started": false, "session": s})
			return
		}

		audit(db, c, "spin", map[string]interface{}{"generation": s.Generation, "participants": len(s.Participants)}, true)
		c.JSON(http.StatusAccepted, gin.H{"started": true, "session": s})
	}
}

// Reset clears the session and cancels any drawing in flight
func Reset(ctrl *tombola.Controller, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl.Reset()
		audit(db, c, "reset", nil, true)
		c.JSON(http.StatusOK, ctrl.Session())
	}
}
