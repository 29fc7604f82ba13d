package tombola

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Frame is one rendered tick of the simulation.
type Frame struct {
	Generation uint64 `json:"generation"`
	Tick       uint64 `json:"tick"`
	Balls      []Ball `json:"balls"`
}

// SimulationLoop drives the simulation once per frame while a spin is
// active. Ticks run sequentially on a single goroutine.
type SimulationLoop struct {
	interval time.Duration
	started  atomic.Int64
	running  atomic.Int64
}

// NewSimulationLoop creates a loop paced at the given frame interval.
func NewSimulationLoop(interval time.Duration) *SimulationLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &SimulationLoop{interval: interval}
}

// Run ticks until ctx is cancelled or step reports the spin is over. Every
// produced frame is handed to emit outside of step.
func (l *SimulationLoop) Run(ctx context.Context, step func() (Frame, bool), emit func(Frame)) {
	l.started.Add(1)
	l.running.Add(1)
	defer l.running.Add(-1)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var ticks uint64
	for {
		select {
		case <-ctx.Done():
			log.Printf("[TOMBOLA] Simulation loop stopped after %d ticks", ticks)
			return
		case <-ticker.C:
			frame, ok := step()
			if !ok {
				log.Printf("[TOMBOLA] Simulation loop finished after %d ticks", ticks)
				return
			}
			ticks++
			if emit != nil {
				emit(frame)
			}
		}
	}
}

// Started returns how many loops have been started.
func (l *SimulationLoop) Started() int64 {
	return l.started.Load()
}

// Running returns how many loops are currently ticking.
func (l *SimulationLoop) Running() int64 {
	return l.running.Load()
}
