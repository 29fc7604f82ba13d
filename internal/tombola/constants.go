package tombola

import "time"

// Enclosure geometry and drawing timings.
const (
	EnclosureRadius = 210.0 // 180 + 30
	BallRadius      = 18.0
	WallMargin      = 8.0

	DefaultSpinDuration  = 3000 * time.Millisecond
	DefaultWinnerWait    = 1000 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond

	MinParticipants = 2
)

// Tuning holds the per-tick force constants. Forces are tuned per tick,
// not per second, so FrameInterval changes the apparent speed.
type Tuning struct {
	EnclosureRadius float64
	WallMargin      float64

	CentrifugalGain  float64
	JitterGain       float64
	SeparationRadius float64
	SeparationGain   float64
	MinDistance      float64 // guards the separation normalization
	Gravity          float64
	FrictionFactor   float64

	BounceDamping   float64
	WallJitter      float64
	SeparationBoost float64
	CollisionJitter float64

	InitialVelocity float64 // seed velocity range, [-v/2, v/2)
	KickVelocity    float64 // random part of the spin-start kick
	KickSwirl       float64 // index-driven part of the spin-start kick
}

// DefaultTuning returns the constants the drawing is tuned with.
func DefaultTuning() Tuning {
	return Tuning{
		EnclosureRadius: EnclosureRadius,
		WallMargin:      WallMargin,

		CentrifugalGain:  0.8,
		JitterGain:       1.5,
		SeparationRadius: 80,
		SeparationGain:   0.3,
		MinDistance:      0.5,
		Gravity:          0.15,
		FrictionFactor:   0.985,

		BounceDamping:   0.9,
		WallJitter:      3,
		SeparationBoost: 1.5,
		CollisionJitter: 2,

		InitialVelocity: 2,
		KickVelocity:    15,
		KickSwirl:       5,
	}
}

// Center returns the enclosure center in local coordinates.
func (t Tuning) Center() Vec2 {
	return Vec2{X: t.EnclosureRadius, Y: t.EnclosureRadius}
}

// MaxDistance is the furthest a ball of radius r may sit from the center.
func (t Tuning) MaxDistance(r float64) float64 {
	return t.EnclosureRadius - r - t.WallMargin
}

// Palette cycles through participant colors by index.
var Palette = []string{
	"#EF4444",
	"#F97316",
	"#F59E0B",
	"#84CC16",
	"#22C55E",
	"#06B6D4",
	"#3B82F6",
	"#8B5CF6",
	"#EC4899",
	"#F43F5E",
}

// ColorFor returns the palette color for the i-th participant.
func ColorFor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}
