package tombola

import "math"

// Ball is the kinematic state of one participant inside the enclosure.
type Ball struct {
	ID          string  `json:"id"`
	Position    Vec2    `json:"position"`
	Velocity    Vec2    `json:"velocity"`
	Radius      float64 `json:"radius"`
	ColorTag    string  `json:"color"`
	DisplayName string  `json:"name"`
}

// BallStore holds the balls of the current session. It is not safe for
// concurrent use; the Controller serializes access under its lock.
type BallStore struct {
	balls []Ball
}

// Seed lays out one ball per participant on a golden-angle spiral and gives
// each a small random velocity.
func (s *BallStore) Seed(ps []Participant, t Tuning, rnd RandFunc) {
	const (
		centerPct = 50.0
		maxPct    = 42.0
	)
	diameter := t.EnclosureRadius * 2

	s.balls = make([]Ball, len(ps))
	for i, p := range ps {
		angle := math.Mod(float64(i)*137.5, 360) * math.Pi / 180
		ring := 20 + float64(i%3)*12
		if ring > maxPct {
			ring = maxPct
		}
		x := centerPct + math.Cos(angle)*ring
		y := centerPct + math.Sin(angle)*ring

		s.balls[i] = Ball{
			ID:          p.ID,
			Position:    NewVec2(x/100*diameter, y/100*diameter),
			Velocity:    NewVec2((rnd()-0.5)*t.InitialVelocity, (rnd()-0.5)*t.InitialVelocity),
			Radius:      BallRadius,
			ColorTag:    p.ColorTag,
			DisplayName: p.DisplayName,
		}
	}
}

// Kick gives every ball a strong random push at spin start.
func (s *BallStore) Kick(t Tuning, rnd RandFunc) {
	for i := range s.balls {
		swirl := NewVec2(math.Cos(float64(i)*2), math.Sin(float64(i)*2)).Times(t.KickSwirl)
		s.balls[i].Velocity = NewVec2(
			(rnd()-0.5)*t.KickVelocity,
			(rnd()-0.5)*t.KickVelocity,
		).Plus(swirl)
	}
}

// Snapshot returns a copy safe to hand to readers.
func (s *BallStore) Snapshot() []Ball {
	out := make([]Ball, len(s.balls))
	copy(out, s.balls)
	return out
}

func (s *BallStore) Len() int {
	return len(s.balls)
}

func (s *BallStore) Clear() {
	s.balls = nil
}
