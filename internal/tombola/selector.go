package tombola

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/playmatatu/tombola/internal/registry"
)

// Selector picks the winner of a drawing. It never mutates the pool.
type Selector interface {
	SelectWinner(ctx context.Context, pool []Participant, category *int) (Participant, error)
}

// TicketRegistry is the remote ticket service consumed by registry mode.
type TicketRegistry interface {
	FetchAll(ctx context.Context) (map[int][]registry.Ticket, error)
	SelectWinner(ctx context.Context, level int) (registry.Ticket, error)
}

// LocalSelector draws uniformly from the eligible pool.
type LocalSelector struct {
	Rand RandFunc
}

func (s LocalSelector) SelectWinner(ctx context.Context, pool []Participant, category *int) (Participant, error) {
	if len(pool) == 0 {
		return Participant{}, &SelectionError{Err: ErrNoWinner}
	}
	rnd := s.Rand
	if rnd == nil {
		rnd = DefaultRand
	}
	i := int(math.Floor(rnd() * float64(len(pool))))
	if i >= len(pool) {
		i = len(pool) - 1
	}
	return pool[i], nil
}

// RegistrySelector delegates the draw to the ticket registry. The remote
// draw is not idempotent, so it is issued exactly once per spin and never
// replaced by a local pick.
type RegistrySelector struct {
	Registry TicketRegistry
	Rand     RandFunc
}

func (s RegistrySelector) SelectWinner(ctx context.Context, pool []Participant, category *int) (Participant, error) {
	if s.Registry == nil {
		return Participant{}, &SelectionError{Err: errors.New("ticket registry not configured")}
	}
	if category == nil {
		return Participant{}, &SelectionError{Err: ErrCategoryRequired}
	}

	ticket, err := s.Registry.SelectWinner(ctx, *category)
	if err != nil {
		log.Printf("[TOMBOLA] Registry draw failed for category %d: %v", *category, err)
		return Participant{}, &SelectionError{Err: err}
	}
	if ticket.TicketNumber == "" {
		return Participant{}, &SelectionError{Err: fmt.Errorf("registry returned no ticket for category %d", *category)}
	}

	winner := Participant{
		ID:          ticket.TicketNumber,
		DisplayName: ticket.HolderName,
		CategoryID:  intPtr(*category),
	}
	if i := indexOfParticipant(pool, ticket.TicketNumber); i >= 0 {
		winner.ColorTag = pool[i].ColorTag
		if winner.DisplayName == "" {
			winner.DisplayName = pool[i].DisplayName
		}
	} else {
		rnd := s.Rand
		if rnd == nil {
			rnd = DefaultRand
		}
		winner.ColorTag = ColorFor(int(rnd() * float64(len(Palette))))
	}
	return winner, nil
}

// participantsFromTickets keeps the active tickets of one category.
func participantsFromTickets(category int, tickets []registry.Ticket) []Participant {
	out := make([]Participant, 0, len(tickets))
	for _, t := range tickets {
		if !t.IsActive() {
			continue
		}
		out = append(out, Participant{
			ID:          t.TicketNumber,
			DisplayName: t.HolderName,
			ColorTag:    ColorFor(len(out)),
			CategoryID:  intPtr(category),
		})
	}
	return out
}
