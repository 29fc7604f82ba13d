package draws

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/tombola/internal/models"
	"github.com/playmatatu/tombola/internal/tombola"
)

// Repository stores revealed winners in the draws table.
type Repository struct {
	db       *sqlx.DB
	instance string
}

// NewRepository creates a draws repository.
func NewRepository(db *sqlx.DB, instance string) *Repository {
	return &Repository{db: db, instance: instance}
}

// ToModel maps a revealed draw to its row.
func ToModel(d tombola.Draw, instance string) models.Draw {
	row := models.Draw{
		Generation:    int64(d.Generation),
		Mode:          string(d.Mode),
		ParticipantID: d.Winner.ID,
		DisplayName:   d.Winner.DisplayName,
		ColorTag:      d.Winner.ColorTag,
		DrawnAt:       d.DrawnAt,
	}
	if d.Winner.CategoryID != nil {
		row.CategoryID = sql.NullInt64{Int64: int64(*d.Winner.CategoryID), Valid: true}
	}
	if instance != "" {
		row.InstanceID = sql.NullString{String: instance, Valid: true}
	}
	return row
}

// RecordDraw implements tombola.DrawRecorder.
func (r *Repository) RecordDraw(ctx context.Context, d tombola.Draw) error {
	row := ToModel(d, r.instance)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO draws (generation, mode, participant_id, display_name, color_tag, category_id, instance_id, drawn_at)
		VALUES (:generation, :mode, :participant_id, :display_name, :color_tag, :category_id, :instance_id, :drawn_at)
	`, row)
	if err != nil {
		return fmt.Errorf("insert draw: %w", err)
	}
	log.Printf("[DB] Recorded draw generation=%d winner=%s", row.Generation, row.ParticipantID)
	return nil
}

// Recent returns the latest draws, newest first.
func (r *Repository) Recent(ctx context.Context, limit, offset int) ([]models.Draw, int, error) {
	type drawRow struct {
		models.Draw
		TotalCount int `db:"total_count"`
	}

	var rows []drawRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, generation, mode, participant_id, display_name, color_tag, category_id, instance_id, drawn_at,
			COUNT(*) OVER() as total_count
		FROM draws
		ORDER BY drawn_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select draws: %w", err)
	}

	out := make([]models.Draw, 0, len(rows))
	total := 0
	for _, row := range rows {
		out = append(out, row.Draw)
		total = row.TotalCount
	}
	return out, total, nil
}
