package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/tombola/internal/admin"
	"github.com/playmatatu/tombola/internal/auth"
	"github.com/playmatatu/tombola/internal/tombola"
)

// ViewerCounter reports connected websocket viewers.
type ViewerCounter interface {
	Count() int
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	var elig *tombola.EligibilityError
	var sel *tombola.SelectionError
	switch {
	case errors.As(err, &elig):
		return http.StatusUnprocessableEntity
	case errors.As(err, &sel):
		return http.StatusBadGateway
	case errors.Is(err, tombola.ErrBusy),
		errors.Is(err, tombola.ErrManualModeOnly),
		errors.Is(err, tombola.ErrRegistryModeOnly):
		return http.StatusConflict
	case errors.Is(err, tombola.ErrUnknownCategory),
		errors.Is(err, tombola.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, tombola.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// audit records an operator action when a database is configured.
func audit(db *sqlx.DB, c *gin.Context, action string, details map[string]interface{}, success bool) {
	if db == nil {
		return
	}
	operator := c.GetString(auth.ContextOperator)
	ip := c.ClientIP()
	route := c.FullPath()
	go admin.LogAction(db, operator, ip, route, action, details, success)
}

// pagination reads limit/offset query params with a limit cap.
func pagination(c *gin.Context, def, max int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
