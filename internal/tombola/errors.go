package tombola

import (
	"errors"
	"fmt"
)

var (
	ErrNotEnoughParticipants = errors.New("at least 2 participants are required to spin")
	ErrCategoryRequired      = errors.New("select a category before spinning")
	ErrBusy                  = errors.New("a drawing is in progress")
	ErrUnknownCategory       = errors.New("category not found")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrEmptyName             = errors.New("participant name is required")
	ErrManualModeOnly        = errors.New("participants are managed by the ticket registry")
	ErrRegistryModeOnly      = errors.New("categories are only available in registry mode")
	ErrNoWinner              = errors.New("no winner could be determined")
)

// EligibilityError rejects a spin request before any state change.
type EligibilityError struct {
	Reason error
}

func (e *EligibilityError) Error() string {
	return "spin rejected: " + e.Reason.Error()
}

func (e *EligibilityError) Unwrap() error {
	return e.Reason
}

// SelectionError reports a failed winner resolution. The drawing returns
// to idle and the pool is left untouched.
type SelectionError struct {
	Err error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("winner selection failed: %v", e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}
