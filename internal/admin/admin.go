package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/tombola/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrOperatorNotFound = errors.New("operator account not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrIPNotAllowed     = errors.New("ip not allowed")
)

// GetOperator retrieves an operator account by name
func GetOperator(db *sqlx.DB, name string) (*models.Operator, error) {
	var op models.Operator
	err := db.Get(&op, `SELECT name, display_name, token_hash, roles, allowed_ips, created_at, updated_at FROM operators WHERE name=$1`, name)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// VerifyToken checks if the provided token matches the stored hash
func VerifyToken(hashedToken, plainToken string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// HashToken hashes an operator token for storage
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// CreateOperator creates or updates an operator account (used for seeding)
func CreateOperator(db *sqlx.DB, name, displayName, plainToken string, roles, allowedIPs []string) error {
	hashedToken, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO operators (name, display_name, token_hash, roles, allowed_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			allowed_ips = EXCLUDED.allowed_ips,
			updated_at = NOW()
	`, name, displayName, hashedToken, pq.Array(roles), pq.Array(allowedIPs))

	return err
}

// LogAction records an operator action in the audit log
func LogAction(db *sqlx.DB, operator, ip, route, action string, details map[string]interface{}, success bool) error {
	if db == nil {
		return nil
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[ADMIN] Failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO operator_audit (operator_name, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, operator, ip, route, action, detailsJSON, success)

	if err != nil {
		log.Printf("[ADMIN] Failed to log operator action: %v", err)
	}

	return err
}

// GetAuditLogs retrieves recent audit entries, optionally for one operator
func GetAuditLogs(db *sqlx.DB, operator string, limit, offset int) ([]models.OperatorAudit, error) {
	var logs []models.OperatorAudit
	query := `
		SELECT id, operator_name, ip, route, action, details, success, created_at
		FROM operator_audit
		WHERE ($1 = '' OR operator_name = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := db.Select(&logs, query, operator, limit, offset)
	return logs, err
}

// ValidateOperator validates a name + token combination
func ValidateOperator(db *sqlx.DB, name, token, ip string) (*models.Operator, error) {
	op, err := GetOperator(db, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[ADMIN] No operator account found for: %s", name)
			return nil, ErrOperatorNotFound
		}
		log.Printf("[ADMIN] Database error: %v", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyToken(op.TokenHash, token) {
		log.Printf("[ADMIN] Token verification failed for: %s", name)
		return nil, ErrInvalidToken
	}

	if !IPAllowed(op.AllowedIPs, ip) {
		log.Printf("[ADMIN] Operator %s rejected from ip %s", name, ip)
		return nil, ErrIPNotAllowed
	}

	log.Printf("[ADMIN] Operator verified: %s", name)
	return op, nil
}

// IPAllowed reports whether ip may log in. An empty list allows any ip.
func IPAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == ip {
			return true
		}
	}
	return false
}
