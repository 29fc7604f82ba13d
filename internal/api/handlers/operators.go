package handlers

import (
	"log"

	"github.com/playmatatu/tombola/internal/admin"
	"github.com/playmatatu/tombola/internal/models"
)

// StaticOperatorValidator accepts a single operator configured through the
// environment. The token is hashed once at startup.
func StaticOperatorValidator(name, token string) OperatorValidator {
	hash, err := admin.HashToken(token)
	if err != nil {
		log.Printf("[AUTH] Failed to hash static operator token: %v", err)
		return nil
	}
	op := &models.Operator{Name: name, DisplayName: name, Roles: []string{"operator"}}
	return func(n, t, ip string) (*models.Operator, error) {
		if n != name {
			return nil, admin.ErrOperatorNotFound
		}
		if !admin.VerifyToken(hash, t) {
			return nil, admin.ErrInvalidToken
		}
		out := *op
		return &out, nil
	}
}
