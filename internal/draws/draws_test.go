package draws

import (
	"testing"
	"time"

	"github.com/playmatatu/tombola/internal/tombola"
	"github.com/stretchr/testify/assert"
)

func TestToModelRegistryDraw(t *testing.T) {
	cat := 2
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := ToModel(tombola.Draw{
		Winner:     tombola.Participant{ID: "A-12", DisplayName: "Marta", ColorTag: "#FF6B6B", CategoryID: &cat},
		Mode:       tombola.ModeRegistry,
		Generation: 7,
		DrawnAt:    at,
	}, "node-a")

	assert.Equal(t, int64(7), row.Generation)
	assert.Equal(t, "registry", row.Mode)
	assert.Equal(t, "A-12", row.ParticipantID)
	assert.True(t, row.CategoryID.Valid)
	assert.Equal(t, 2, *row.Category())
	assert.Equal(t, "node-a", row.InstanceID.String)
	assert.Equal(t, at, row.DrawnAt)
}

func TestToModelManualDraw(t *testing.T) {
	row := ToModel(tombola.Draw{
		Winner: tombola.Participant{ID: "p_1", DisplayName: "Ana"},
		Mode:   tombola.ModeManual,
	}, "")

	assert.False(t, row.CategoryID.Valid)
	assert.Nil(t, row.Category())
	assert.False(t, row.InstanceID.Valid)
}
