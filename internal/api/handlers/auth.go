package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/tombola/internal/admin"
	"github.com/playmatatu/tombola/internal/auth"
	"github.com/playmatatu/tombola/internal/models"
)

// OperatorValidator checks operator credentials.
type OperatorValidator func(name, token, ip string) (*models.Operator, error)

// DBOperatorValidator validates against the operators table.
func DBOperatorValidator(db *sqlx.DB) OperatorValidator {
	return func(name, token, ip string) (*models.Operator, error) {
		return admin.ValidateOperator(db, name, token, ip)
	}
}

// OperatorLogin validates name + token and issues a bearer JWT
func OperatorLogin(validate OperatorValidator, issuer *auth.Issuer, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and token are required"})
			return
		}

		name := strings.TrimSpace(req.Name)
		op, err := validate(name, strings.TrimSpace(req.Token), c.ClientIP())
		if err != nil {
			log.Printf("[AUTH] Login failed for %s: %v", name, err)
			c.Set(auth.ContextOperator, name)
			audit(db, c, "login", map[string]interface{}{"name": name}, false)
			if errors.Is(err, admin.ErrIPNotAllowed) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Login not allowed from this address"})
				return
			}
			if errors.Is(err, admin.ErrOperatorNotFound) || errors.Is(err, admin.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, exp, err := issuer.Issue(op.Name, op.Roles)
		if err != nil {
			log.Printf("[AUTH] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(auth.ContextOperator, op.Name)
		audit(db, c, "login", map[string]interface{}{"name": op.Name}, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": exp.Unix(),
			"operator":   gin.H{"name": op.Name, "display_name": op.DisplayName, "roles": op.Roles},
		})
	}
}

// OperatorMe returns the authenticated operator
func OperatorMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":  c.GetString(auth.ContextOperator),
			"roles": c.GetStringSlice(auth.ContextRoles),
		})
	}
}
