package models

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Draw is one revealed winner
type Draw struct {
	ID            int64          `db:"id" json:"id"`
	Generation    int64          `db:"generation" json:"generation"`
	Mode          string         `db:"mode" json:"mode"`
	ParticipantID string         `db:"participant_id" json:"participant_id"`
	DisplayName   string         `db:"display_name" json:"display_name"`
	ColorTag      string         `db:"color_tag" json:"color"`
	CategoryID    sql.NullInt64  `db:"category_id" json:"-"`
	InstanceID    sql.NullString `db:"instance_id" json:"-"`
	DrawnAt       time.Time      `db:"drawn_at" json:"drawn_at"`
}

// Category returns the category a registry draw came from.
func (d Draw) Category() *int {
	if !d.CategoryID.Valid {
		return nil
	}
	v := int(d.CategoryID.Int64)
	return &v
}

// Operator is an account allowed to run the drawing
type Operator struct {
	Name        string         `db:"name" json:"name"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	AllowedIPs  pq.StringArray `db:"allowed_ips" json:"allowed_ips"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the operator carries role.
func (o Operator) HasRole(role string) bool {
	for _, r := range o.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// OperatorAudit is one recorded operator action
type OperatorAudit struct {
	ID           int            `db:"id" json:"id"`
	OperatorName string         `db:"operator_name" json:"operator_name"`
	IP           string         `db:"ip" json:"ip"`
	Route        string         `db:"route" json:"route"`
	Action       string         `db:"action" json:"action"`
	Details      types.JSONText `db:"details" json:"details"`
	Success      bool           `db:"success" json:"success"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// RuntimeConfig is a drawing setting that can be changed without restart
type RuntimeConfig struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	ValueType   string    `db:"value_type" json:"value_type"`
	Description *string   `db:"description" json:"description"`
	UpdatedBy   *string   `db:"updated_by" json:"updated_by"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
