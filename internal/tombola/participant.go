package tombola

import (
	"crypto/rand"
	"encoding/hex"
)

// Participant is one candidate in the pool.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ColorTag    string `json:"color"`
	CategoryID  *int   `json:"category_id,omitempty"`
}

// generateParticipantID generates a random participant id for manual entries
func generateParticipantID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "p_" + hex.EncodeToString(b)
}

func cloneParticipants(ps []Participant) []Participant {
	if ps == nil {
		return nil
	}
	out := make([]Participant, len(ps))
	copy(out, ps)
	return out
}

func indexOfParticipant(ps []Participant, id string) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func intPtr(v int) *int {
	return &v
}
