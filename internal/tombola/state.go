package tombola

// SpinState represents the current phase of a drawing
type SpinState string

const (
	StateIdle           SpinState = "IDLE"
	StateSpinning       SpinState = "SPINNING"
	StateAwaitingWinner SpinState = "AWAITING_WINNER"
	StateRevealed       SpinState = "REVEALED"
)

// Active reports whether a drawing is in flight.
func (s SpinState) Active() bool {
	return s == StateSpinning || s == StateAwaitingWinner
}

// Mode selects how winners are chosen and how the pool is maintained.
type Mode string

const (
	ModeManual   Mode = "manual"
	ModeRegistry Mode = "registry"
)

// ParseMode maps a config value onto a Mode, defaulting to manual.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRegistry {
		return ModeRegistry
	}
	return ModeManual
}
