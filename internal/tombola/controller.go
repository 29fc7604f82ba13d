package tombola

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/playmatatu/tombola/internal/registry"
)

// Session is a point-in-time view of the drawing.
type Session struct {
	State            SpinState     `json:"state"`
	Mode             Mode          `json:"mode"`
	Generation       uint64        `json:"generation"`
	Version          uint64        `json:"version"`
	SelectedCategory *int          `json:"selected_category,omitempty"`
	Participants     []Participant `json:"participants"`
	Winner           *Participant  `json:"winner,omitempty"`
	WinnersHistory   []Participant `json:"winners_history"`
	Error            string        `json:"error,omitempty"`
	SpinStartedAt    *time.Time    `json:"spin_started_at,omitempty"`
	AwaitingSince    *time.Time    `json:"awaiting_since,omitempty"`
	RevealedAt       *time.Time    `json:"revealed_at,omitempty"`
}

// Category is a loaded registry category.
type Category struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Eligible int    `json:"eligible"`
}

// Observer receives session changes and simulation frames. Callbacks are
// invoked without the controller lock held and must not block.
type Observer interface {
	OnSession(Session)
	OnFrame(Frame)
}

// Draw is a revealed winner.
type Draw struct {
	Winner     Participant
	Mode       Mode
	Generation uint64
	DrawnAt    time.Time
}

// DrawRecorder persists revealed winners.
type DrawRecorder interface {
	RecordDraw(ctx context.Context, d Draw) error
}

// Options configures a Controller.
type Options struct {
	Mode          Mode
	SpinDuration  time.Duration
	WinnerWait    time.Duration
	FrameInterval time.Duration
	Tuning        *Tuning

	// Selector overrides the strategy implied by Mode.
	Selector  Selector
	Registry  TicketRegistry
	Recorder  DrawRecorder
	Observers []Observer
	Rand      RandFunc
}

// Controller is the single authority over the participant pool, the ball
// store and the spin state machine. Every asynchronous continuation carries
// the generation it was started under and is dropped if it no longer
// matches.
type Controller struct {
	mu sync.Mutex

	mode         Mode
	spinDuration time.Duration
	winnerWait   time.Duration
	tuning       Tuning
	rnd          RandFunc
	sim          *Simulation
	loop         *SimulationLoop
	selector     Selector
	registry     TicketRegistry
	recorder     DrawRecorder

	obsMu     sync.RWMutex
	observers []Observer

	balls        BallStore
	participants []Participant
	categories   map[int][]Participant
	category     *int
	state        SpinState
	generation   uint64
	version      uint64
	ticks        uint64
	winner       *Participant
	history      []Participant
	lastError    string

	spinStartedAt time.Time
	awaitingSince time.Time
	revealedAt    time.Time

	spinTimer  *time.Timer
	stopLoop   context.CancelFunc
	cancelDraw context.CancelFunc
}

// NewController creates an idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Mode == "" {
		opts.Mode = ModeManual
	}
	if opts.Mode == ModeRegistry && opts.Registry == nil {
		return nil, errors.New("registry mode requires a ticket registry")
	}
	if opts.SpinDuration <= 0 {
		opts.SpinDuration = DefaultSpinDuration
	}
	if opts.WinnerWait < 0 {
		opts.WinnerWait = 0
	}
	if opts.Rand == nil {
		opts.Rand = DefaultRand
	}
	tuning := DefaultTuning()
	if opts.Tuning != nil {
		tuning = *opts.Tuning
	}

	selector := opts.Selector
	if selector == nil {
		if opts.Mode == ModeRegistry {
			selector = RegistrySelector{Registry: opts.Registry, Rand: opts.Rand}
		} else {
			selector = LocalSelector{Rand: opts.Rand}
		}
	}

	return &Controller{
		mode:         opts.Mode,
		spinDuration: opts.SpinDuration,
		winnerWait:   opts.WinnerWait,
		tuning:       tuning,
		rnd:          opts.Rand,
		sim:          NewSimulation(tuning, opts.Rand),
		loop:         NewSimulationLoop(opts.FrameInterval),
		selector:     selector,
		registry:     opts.Registry,
		recorder:     opts.Recorder,
		observers:    append([]Observer(nil), opts.Observers...),
		categories:   make(map[int][]Participant),
		state:        StateIdle,
	}, nil
}

// AddObserver registers an observer for subsequent events.
func (c *Controller) AddObserver(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// Mode returns the selection mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Timings returns the spin duration and reveal pause.
func (c *Controller) Timings() (spin, wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spinDuration, c.winnerWait
}

// SetTimings changes the spin duration and reveal pause. A drawing already
// in flight keeps the values it started with.
func (c *Controller) SetTimings(spin, wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spin > 0 {
		c.spinDuration = spin
	}
	if wait >= 0 {
		c.winnerWait = wait
	}
}

// Loop exposes the simulation loop counters.
func (c *Controller) Loop() *SimulationLoop {
	return c.loop
}

// Session returns the current snapshot.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked()
}

// Balls returns the current ball positions.
func (c *Controller) Balls() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Frame{Generation: c.generation, Tick: c.ticks, Balls: c.balls.Snapshot()}
}

// Categories returns the loaded registry categories sorted by id.
func (c *Controller) Categories() []Category {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Category, 0, len(c.categories))
	for id, pool := range c.categories {
		out = append(out, Category{ID: id, Name: fmt.Sprintf("Category %d", id), Eligible: len(pool)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddParticipant registers a manual participant.
func (c *Controller) AddParticipant(name string) (Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Participant{}, ErrEmptyName
	}

	c.mu.Lock()
	if c.mode != ModeManual {
		c.mu.Unlock()
		return Participant{}, ErrManualModeOnly
	}
	if c.state.Active() {
		c.mu.Unlock()
		return Participant{}, ErrBusy
	}

	p := Participant{
		ID:          generateParticipantID(),
		DisplayName: name,
		ColorTag:    ColorFor(len(c.participants)),
	}
	c.participants = append(c.participants, p)
	c.reseedLocked()
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Participant added: %s (%s)", p.DisplayName, p.ID)
	c.notifySession(snap)
	return p, nil
}

// RemoveParticipant drops a manual participant from the pool.
func (c *Controller) RemoveParticipant(id string) error {
	c.mu.Lock()
	if c.mode != ModeManual {
		c.mu.Unlock()
		return ErrManualModeOnly
	}
	if c.state.Active() {
		c.mu.Unlock()
		return ErrBusy
	}
	i := indexOfParticipant(c.participants, id)
	if i < 0 {
		c.mu.Unlock()
		return ErrParticipantNotFound
	}
	c.participants = append(c.participants[:i:i], c.participants[i+1:]...)
	c.reseedLocked()
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Participant removed: %s", id)
	c.notifySession(snap)
	return nil
}

// LoadCategories fetches every category from the ticket registry. If a
// category is selected and no drawing is in flight, its pool is rebuilt
// from the fresh data.
func (c *Controller) LoadCategories(ctx context.Context) error {
	if c.mode != ModeRegistry {
		return ErrRegistryModeOnly
	}

	all, err := c.registry.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	c.mu.Lock()
	c.applyTicketsLocked(all)
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Loaded %d categories from registry", len(all))
	c.notifySession(snap)
	return nil
}

// SelectCategory makes one loaded category the eligible pool.
func (c *Controller) SelectCategory(id int) error {
	c.mu.Lock()
	if c.mode != ModeRegistry {
		c.mu.Unlock()
		return ErrRegistryModeOnly
	}
	if c.state.Active() {
		c.mu.Unlock()
		return ErrBusy
	}
	pool, ok := c.categories[id]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownCategory
	}

	c.category = intPtr(id)
	c.participants = cloneParticipants(pool)
	c.lastError = ""
	c.reseedLocked()
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Category %d selected (%d eligible)", id, len(pool))
	c.notifySession(snap)
	return nil
}

// Spin starts a drawing. A request while a drawing is in flight is ignored
// and reports started=false with no error.
func (c *Controller) Spin() (bool, error) {
	c.mu.Lock()
	if c.state.Active() {
		state := c.state
		c.mu.Unlock()
		log.Printf("[TOMBOLA] Spin ignored, drawing in progress (state=%s)", state)
		return false, nil
	}
	if len(c.participants) < MinParticipants {
		c.mu.Unlock()
		return false, &EligibilityError{Reason: ErrNotEnoughParticipants}
	}
	if c.mode == ModeRegistry && c.category == nil {
		c.mu.Unlock()
		return false, &EligibilityError{Reason: ErrCategoryRequired}
	}

	c.generation++
	gen := c.generation
	drawCtx, cancelDraw := context.WithCancel(context.Background())
	loopCtx, stopLoop := context.WithCancel(drawCtx)
	c.cancelDraw = cancelDraw
	c.stopLoop = stopLoop

	if c.balls.Len() != len(c.participants) {
		c.reseedLocked()
	}
	c.balls.Kick(c.tuning, c.rnd)
	c.ticks = 0
	c.state = StateSpinning
	c.lastError = ""
	c.spinStartedAt = time.Now()
	c.awaitingSince = time.Time{}
	c.spinTimer = time.AfterFunc(c.spinDuration, func() { c.finishSpin(drawCtx, gen) })
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Spin %d started with %d participants", gen, len(snap.Participants))
	c.notifySession(snap)

	go c.loop.Run(loopCtx, func() (Frame, bool) { return c.step(gen) }, c.notifyFrame)
	return true, nil
}

// Reset clears participants, history and the current winner. It cancels
// any drawing in flight; late timer or network continuations are dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	c.haltLocked()
	if c.cancelDraw != nil {
		c.cancelDraw()
		c.cancelDraw = nil
	}

	c.state = StateIdle
	c.participants = nil
	c.history = nil
	c.winner = nil
	c.category = nil
	c.lastError = ""
	c.ticks = 0
	c.spinStartedAt = time.Time{}
	c.awaitingSince = time.Time{}
	c.revealedAt = time.Time{}
	c.balls.Clear()
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Reset (generation=%d)", snap.Generation)
	c.notifySession(snap)
}

// step runs one simulation tick for generation gen.
func (c *Controller) step(gen uint64) (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSpinning || c.generation != gen {
		return Frame{}, false
	}
	c.sim.Step(c.balls.balls, true)
	c.ticks++
	return Frame{Generation: gen, Tick: c.ticks, Balls: c.balls.Snapshot()}, true
}

// finishSpin freezes the balls and starts winner resolution.
func (c *Controller) finishSpin(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.state != StateSpinning {
		c.mu.Unlock()
		return
	}
	c.haltLocked()
	ticks := c.ticks
	wait := c.winnerWait
	c.state = StateAwaitingWinner
	c.awaitingSince = time.Now()
	pool := cloneParticipants(c.participants)
	var category *int
	if c.category != nil {
		category = intPtr(*c.category)
	}
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Spin %d stopped after %d ticks, awaiting winner", gen, ticks)
	c.notifySession(snap)

	go c.resolveWinner(ctx, gen, pool, category, wait)
}

// resolveWinner reveals only once the selector answered and the reveal
// pause elapsed, whichever comes last.
func (c *Controller) resolveWinner(ctx context.Context, gen uint64, pool []Participant, category *int, wait time.Duration) {
	pause := time.NewTimer(wait)
	defer pause.Stop()

	winner, err := c.selector.SelectWinner(ctx, pool, category)
	if ctx.Err() != nil {
		log.Printf("[TOMBOLA] Discarding winner resolution for stale spin %d", gen)
		return
	}
	if err != nil {
		c.failSpin(gen, err)
		return
	}

	select {
	case <-pause.C:
	case <-ctx.Done():
		log.Printf("[TOMBOLA] Discarding reveal for stale spin %d", gen)
		return
	}
	c.reveal(gen, winner)
}

func (c *Controller) failSpin(gen uint64, err error) {
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		err = &SelectionError{Err: err}
	}

	c.mu.Lock()
	if c.generation != gen || c.state != StateAwaitingWinner {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.lastError = err.Error()
	if c.cancelDraw != nil {
		c.cancelDraw()
		c.cancelDraw = nil
	}
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Spin %d failed: %v", gen, err)
	c.notifySession(snap)
}

func (c *Controller) reveal(gen uint64, winner Participant) {
	c.mu.Lock()
	if c.generation != gen || c.state != StateAwaitingWinner {
		c.mu.Unlock()
		return
	}
	c.state = StateRevealed
	c.revealedAt = time.Now()
	w := winner
	c.winner = &w
	c.history = append(c.history, winner)
	if c.cancelDraw != nil {
		c.cancelDraw()
		c.cancelDraw = nil
	}

	if c.mode == ModeManual {
		if i := indexOfParticipant(c.participants, winner.ID); i >= 0 {
			c.participants = append(c.participants[:i:i], c.participants[i+1:]...)
		}
		c.reseedLocked()
	}
	snap := c.touchLocked()
	c.mu.Unlock()

	log.Printf("[TOMBOLA] Spin %d winner: %s (%s)", gen, winner.DisplayName, winner.ID)
	c.notifySession(snap)

	if c.recorder != nil {
		go c.record(Draw{Winner: winner, Mode: c.mode, Generation: gen, DrawnAt: drawnAt(snap)})
	}
	if c.mode == ModeRegistry {
		go c.refreshAfterWin(gen)
	}
}

func (c *Controller) record(d Draw) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.recorder.RecordDraw(ctx, d); err != nil {
		log.Printf("[TOMBOLA] Failed to record draw for spin %d: %v", d.Generation, err)
	}
}

// refreshAfterWin re-derives the pool from the registry, which is trusted
// to have deactivated the winning ticket.
func (c *Controller) refreshAfterWin(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	all, err := c.registry.FetchAll(ctx)
	if err != nil {
		log.Printf("[TOMBOLA] Registry refresh after spin %d failed: %v", gen, err)
		return
	}

	c.mu.Lock()
	if c.generation != gen || c.state.Active() {
		c.mu.Unlock()
		log.Printf("[TOMBOLA] Discarding registry refresh for stale spin %d", gen)
		return
	}
	c.applyTicketsLocked(all)
	snap := c.touchLocked()
	c.mu.Unlock()

	c.notifySession(snap)
}

func (c *Controller) applyTicketsLocked(all map[int][]registry.Ticket) {
	c.categories = make(map[int][]Participant, len(all))
	for id, tickets := range all {
		c.categories[id] = participantsFromTickets(id, tickets)
	}
	if c.category == nil || c.state.Active() {
		return
	}
	c.participants = cloneParticipants(c.categories[*c.category])
	c.reseedLocked()
}

// reseedLocked rebuilds the ball store from the pool. Never called while a
// drawing is in flight.
func (c *Controller) reseedLocked() {
	if c.state.Active() {
		return
	}
	c.balls.Seed(c.participants, c.tuning, c.rnd)
	c.ticks = 0
}

// haltLocked stops the spin timer and the simulation loop.
func (c *Controller) haltLocked() {
	if c.spinTimer != nil {
		c.spinTimer.Stop()
		c.spinTimer = nil
	}
	if c.stopLoop != nil {
		c.stopLoop()
		c.stopLoop = nil
	}
}

func (c *Controller) touchLocked() Session {
	c.version++
	return c.sessionLocked()
}

func (c *Controller) sessionLocked() Session {
	s := Session{
		State:          c.state,
		Mode:           c.mode,
		Generation:     c.generation,
		Version:        c.version,
		Participants:   cloneParticipants(c.participants),
		WinnersHistory: cloneParticipants(c.history),
		Error:          c.lastError,
	}
	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if s.WinnersHistory == nil {
		s.WinnersHistory = []Participant{}
	}
	if c.category != nil {
		s.SelectedCategory = intPtr(*c.category)
	}
	if c.winner != nil {
		w := *c.winner
		s.Winner = &w
	}
	s.SpinStartedAt = timePtr(c.spinStartedAt)
	s.AwaitingSince = timePtr(c.awaitingSince)
	s.RevealedAt = timePtr(c.revealedAt)
	return s
}

func (c *Controller) notifySession(s Session) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		o.OnSession(s)
	}
}

func (c *Controller) notifyFrame(f Frame) {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	for _, o := range c.observers {
		o.OnFrame(f)
	}
}

func drawnAt(s Session) time.Time {
	if s.RevealedAt == nil {
		return time.Now().UTC()
	}
	return s.RevealedAt.UTC()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
