package tombola

import (
	"math"
	"math/rand/v2"
)

// RandFunc returns a uniform value in [0, 1). Implementations shared
// between goroutines must be safe for concurrent use.
type RandFunc func() float64

// DefaultRand is the process-wide generator.
var DefaultRand RandFunc = rand.Float64

// Simulation advances the balls of one enclosure. Trajectories are
// deliberately non-deterministic: jitter is injected every tick.
type Simulation struct {
	Tuning Tuning
	rnd    RandFunc
}

// NewSimulation creates a simulation with the given tuning.
func NewSimulation(t Tuning, rnd RandFunc) *Simulation {
	if rnd == nil {
		rnd = DefaultRand
	}
	return &Simulation{Tuning: t, rnd: rnd}
}

// Step runs one tick: integrate every ball against the pre-tick state,
// resolve overlaps, then keep everything inside the wall.
func (s *Simulation) Step(balls []Ball, spinning bool) {
	prev := make([]Ball, len(balls))
	copy(prev, balls)

	for i := range balls {
		balls[i] = s.Integrate(prev[i], prev, spinning)
	}
	s.ResolveCollisions(balls)

	// Overlap pushes can move a ball past the wall; clamp position only.
	for i := range balls {
		s.clamp(&balls[i])
	}
}

// Integrate advances one ball by a single tick. others is the pre-tick
// state of every ball, including b itself.
func (s *Simulation) Integrate(b Ball, others []Ball, spinning bool) Ball {
	t := s.Tuning
	center := t.Center()

	if spinning {
		offset := b.Position.Minus(center)
		b.Velocity = b.Velocity.Plus(offset.Times(t.CentrifugalGain / t.EnclosureRadius))
	}

	b.Velocity = b.Velocity.Plus(s.jitter(t.JitterGain))

	for _, o := range others {
		if o.ID == b.ID {
			continue
		}
		delta := b.Position.Minus(o.Position)
		d := delta.Magnitude()
		if d >= t.SeparationRadius {
			continue
		}
		if d < t.MinDistance {
			if d == 0 {
				delta = FromAngle(s.rnd()*2*math.Pi, t.MinDistance)
			}
			d = t.MinDistance
		}
		b.Velocity = b.Velocity.Plus(delta.Times(t.SeparationGain / d))
	}

	b.Velocity.Y += t.Gravity
	b.Velocity = b.Velocity.Times(t.FrictionFactor)
	b.Position = b.Position.Plus(b.Velocity)

	s.Contain(&b)
	return b
}

// Contain pulls a ball that crossed the wall back onto it, reflects its
// velocity across the wall normal and perturbs it so it does not slide.
func (s *Simulation) Contain(b *Ball) {
	t := s.Tuning
	center := t.Center()
	offset := b.Position.Minus(center)
	maxDist := t.MaxDistance(b.Radius)

	if offset.Magnitude() <= maxDist {
		return
	}

	normal := FromAngle(offset.Angle(), 1)
	b.Position = center.Plus(normal.Times(maxDist))
	b.Velocity = b.Velocity.Reflect(normal).Times(t.BounceDamping)
	b.Velocity = b.Velocity.Plus(s.jitter(t.WallJitter))
}

func (s *Simulation) clamp(b *Ball) {
	t := s.Tuning
	center := t.Center()
	offset := b.Position.Minus(center)
	maxDist := t.MaxDistance(b.Radius)
	if offset.Magnitude() > maxDist {
		b.Position = center.Plus(FromAngle(offset.Angle(), maxDist))
	}
}

// ResolveCollisions separates every overlapping pair in index order, one
// pass only. A pair may be disturbed again by a later pair in the same
// tick; overlaps are resolved approximately, not to convergence.
func (s *Simulation) ResolveCollisions(balls []Ball) {
	t := s.Tuning
	for i := 0; i < len(balls); i++ {
		for j := i + 1; j < len(balls); j++ {
			a, b := &balls[i], &balls[j]

			delta := b.Position.Minus(a.Position)
			d := delta.Magnitude()
			minDist := a.Radius + b.Radius
			if d >= minDist {
				continue
			}

			var axis Vec2
			if d == 0 {
				axis = FromAngle(s.rnd()*2*math.Pi, 1)
			} else {
				axis = delta.Times(1 / d)
			}

			push := axis.Times((minDist - d) / 2 * t.SeparationBoost)
			a.Position = a.Position.Minus(push)
			b.Position = b.Position.Plus(push)

			va, vb := a.Velocity, b.Velocity
			a.Velocity = vb.Times(t.BounceDamping).Plus(s.jitter(t.CollisionJitter))
			b.Velocity = va.Times(t.BounceDamping).Plus(s.jitter(t.CollisionJitter))
		}
	}
}

// jitter returns a vector with each component uniform in [-scale/2, scale/2).
func (s *Simulation) jitter(scale float64) Vec2 {
	return Vec2{X: (s.rnd() - 0.5) * scale, Y: (s.rnd() - 0.5) * scale}
}
