package tombola

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmatatu/tombola/internal/registry"
)

const (
	testSpin  = 40 * time.Millisecond
	testWait  = 60 * time.Millisecond
	testFrame = 2 * time.Millisecond
	eventual  = 2 * time.Second
	poll      = 5 * time.Millisecond
)

type fakeRegistry struct {
	mu       sync.Mutex
	tickets  map[int][]registry.Ticket
	selectFn func(ctx context.Context, level int) (registry.Ticket, error)
	fetches  int
	selects  int
}

func (f *fakeRegistry) FetchAll(ctx context.Context) (map[int][]registry.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	out := make(map[int][]registry.Ticket, len(f.tickets))
	for k, v := range f.tickets {
		out[k] = append([]registry.Ticket(nil), v...)
	}
	return out, nil
}

func (f *fakeRegistry) SelectWinner(ctx context.Context, level int) (registry.Ticket, error) {
	f.mu.Lock()
	f.selects++
	fn := f.selectFn
	f.mu.Unlock()
	return fn(ctx, level)
}

func (f *fakeRegistry) deactivate(level int, number string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tickets[level] {
		if t.TicketNumber == number {
			f.tickets[level][i].Active = 0
		}
	}
}

func (f *fakeRegistry) selectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selects
}

type recordingObserver struct {
	mu       sync.Mutex
	sessions []Session
	frames   int
}

func (o *recordingObserver) OnSession(s Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = append(o.sessions, s)
}

func (o *recordingObserver) OnFrame(Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames++
}

func (o *recordingObserver) frameCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}

type memoryRecorder struct {
	mu    sync.Mutex
	draws []Draw
}

func (r *memoryRecorder) RecordDraw(ctx context.Context, d Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, d)
	return nil
}

func (r *memoryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.draws)
}

func newManual(t *testing.T, opts Options) *Controller {
	t.Helper()
	opts.Mode = ModeManual
	opts.SpinDuration = testSpin
	opts.WinnerWait = testWait
	opts.FrameInterval = testFrame
	c, err := NewController(opts)
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	return c
}

func newRegistry(t *testing.T, reg *fakeRegistry) *Controller {
	t.Helper()
	c, err := NewController(Options{
		Mode:          ModeRegistry,
		Registry:      reg,
		SpinDuration:  testSpin,
		WinnerWait:    testWait,
		FrameInterval: testFrame,
	})
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	return c
}

func addAll(t *testing.T, c *Controller, names ...string) []Participant {
	t.Helper()
	out := make([]Participant, 0, len(names))
	for _, n := range names {
		p, err := c.AddParticipant(n)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func waitForState(t *testing.T, c *Controller, want SpinState) Session {
	t.Helper()
	var s Session
	require.Eventually(t, func() bool {
		s = c.Session()
		return s.State == want
	}, eventual, poll, "state never reached %s", want)
	return s
}

func TestManualSpinRevealsOneOfThePool(t *testing.T) {
	rec := &memoryRecorder{}
	obs := &recordingObserver{}
	c := newManual(t, Options{Recorder: rec, Observers: []Observer{obs}})
	pool := addAll(t, c, "A", "B", "C")

	started, err := c.Spin()
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, StateSpinning, c.Session().State)

	s := waitForState(t, c, StateRevealed)

	require.NotNil(t, s.Winner)
	ids := []string{pool[0].ID, pool[1].ID, pool[2].ID}
	assert.Contains(t, ids, s.Winner.ID)
	assert.Len(t, s.WinnersHistory, 1)
	assert.Equal(t, *s.Winner, s.WinnersHistory[0])
	assert.Len(t, s.Participants, 2)
	assert.NotContains(t, s.Participants, *s.Winner)
	assert.Len(t, c.Balls().Balls, 2, "balls reseeded from the remaining pool")

	assert.Greater(t, obs.frameCount(), 0, "simulation emitted frames while spinning")
	assert.Eventually(t, func() bool { return rec.count() == 1 }, eventual, poll)
}

func TestRevealWaitsForBothTimers(t *testing.T) {
	c := newManual(t, Options{Selector: LocalSelector{}})
	addAll(t, c, "A", "B")

	_, err := c.Spin()
	require.NoError(t, err)

	s := waitForState(t, c, StateRevealed)
	require.NotNil(t, s.SpinStartedAt)
	require.NotNil(t, s.AwaitingSince)
	require.NotNil(t, s.RevealedAt)

	assert.GreaterOrEqual(t, s.AwaitingSince.Sub(*s.SpinStartedAt), testSpin)
	assert.GreaterOrEqual(t, s.RevealedAt.Sub(*s.AwaitingSince), testWait)
	assert.GreaterOrEqual(t, s.RevealedAt.Sub(*s.SpinStartedAt), testSpin+testWait)
}

func TestRevealWaitsForSlowSelector(t *testing.T) {
	release := make(chan struct{})
	slow := selectorFunc(func(ctx context.Context, pool []Participant, _ *int) (Participant, error) {
		<-release
		return pool[0], nil
	})
	c := newManual(t, Options{Selector: slow})
	addAll(t, c, "A", "B")

	_, err := c.Spin()
	require.NoError(t, err)
	waitForState(t, c, StateAwaitingWinner)

	time.Sleep(testWait * 2)
	assert.Equal(t, StateAwaitingWinner, c.Session().State, "must not reveal before the winner is known")

	close(release)
	waitForState(t, c, StateRevealed)
}

func TestSpinRejectedWhileInFlight(t *testing.T) {
	c := newManual(t, Options{})
	addAll(t, c, "A", "B", "C")

	started, err := c.Spin()
	require.NoError(t, err)
	require.True(t, started)

	again, err := c.Spin()
	assert.NoError(t, err)
	assert.False(t, again)

	waitForState(t, c, StateAwaitingWinner)
	again, err = c.Spin()
	assert.NoError(t, err)
	assert.False(t, again)

	s := waitForState(t, c, StateRevealed)
	assert.Len(t, s.WinnersHistory, 1)
	assert.EqualValues(t, 1, c.Loop().Started(), "only one simulation loop may run per drawing")
}

func TestSpinEligibility(t *testing.T) {
	c := newManual(t, Options{})
	addAll(t, c, "Solo")

	started, err := c.Spin()
	assert.False(t, started)
	var elig *EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
	assert.Equal(t, StateIdle, c.Session().State)
	assert.EqualValues(t, 0, c.Loop().Started())
}

func TestRegistrySpinRequiresCategory(t *testing.T) {
	reg := &fakeRegistry{tickets: map[int][]registry.Ticket{
		1: {{TicketNumber: "001", HolderName: "Ana", Active: 1}, {TicketNumber: "002", HolderName: "Luis", Active: 1}},
	}}
	c := newRegistry(t, reg)
	require.NoError(t, c.LoadCategories(context.Background()))

	_, err := c.Spin()
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	// Pool without a category cannot exist through the API; force it.
	c.mu.Lock()
	c.participants = participantsFromTickets(1, reg.tickets[1])
	c.mu.Unlock()

	_, err = c.Spin()
	var elig *EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.ErrorIs(t, err, ErrCategoryRequired)
}

func TestRegistryFailureReturnsToIdle(t *testing.T) {
	reg := &fakeRegistry{
		tickets: map[int][]registry.Ticket{
			2: {{TicketNumber: "010", HolderName: "Ana", Active: 1}, {TicketNumber: "011", HolderName: "Luis", Active: 1}, {TicketNumber: "012", HolderName: "Eva", Active: 0}},
		},
		selectFn: func(ctx context.Context, level int) (registry.Ticket, error) {
			return registry.Ticket{}, errors.New("no tickets")
		},
	}
	c := newRegistry(t, reg)
	require.NoError(t, c.LoadCategories(context.Background()))
	require.NoError(t, c.SelectCategory(2))
	before := c.Session()
	require.Len(t, before.Participants, 2, "inactive tickets are not eligible")

	started, err := c.Spin()
	require.NoError(t, err)
	require.True(t, started)

	var s Session
	require.Eventually(t, func() bool {
		s = c.Session()
		return s.State == StateIdle && s.Error != ""
	}, eventual, poll)

	assert.Contains(t, s.Error, "no tickets")
	assert.Equal(t, before.Participants, s.Participants)
	assert.Empty(t, s.WinnersHistory)
	assert.Nil(t, s.Winner)
	assert.Equal(t, 1, reg.selectCount(), "remote draws are never retried")
}

func TestRegistryWinnerRefreshesPool(t *testing.T) {
	reg := &fakeRegistry{tickets: map[int][]registry.Ticket{
		3: {{TicketNumber: "100", HolderName: "Ana", Active: 1}, {TicketNumber: "101", HolderName: "Luis", Active: 1}, {TicketNumber: "102", HolderName: "Eva", Active: 1}},
	}}
	reg.selectFn = func(ctx context.Context, level int) (registry.Ticket, error) {
		assert.Equal(t, 3, level)
		reg.deactivate(3, "101")
		return registry.Ticket{TicketNumber: "101", HolderName: "Luis", Active: 1}, nil
	}
	c := newRegistry(t, reg)
	require.NoError(t, c.LoadCategories(context.Background()))
	require.NoError(t, c.SelectCategory(3))

	_, err := c.Spin()
	require.NoError(t, err)
	s := waitForState(t, c, StateRevealed)

	require.NotNil(t, s.Winner)
	assert.Equal(t, "101", s.Winner.ID)
	assert.Equal(t, "Luis", s.Winner.DisplayName)
	require.NotNil(t, s.Winner.CategoryID)
	assert.Equal(t, 3, *s.Winner.CategoryID)

	require.Eventually(t, func() bool { return len(c.Session().Participants) == 2 }, eventual, poll)
	for _, p := range c.Session().Participants {
		assert.NotEqual(t, "101", p.ID)
	}
	assert.Len(t, c.Session().WinnersHistory, 1)
}

func TestResetDiscardsInFlightResolution(t *testing.T) {
	release := make(chan struct{})
	reg := &fakeRegistry{tickets: map[int][]registry.Ticket{
		1: {{TicketNumber: "1", HolderName: "Ana", Active: 1}, {TicketNumber: "2", HolderName: "Luis", Active: 1}},
	}}
	reg.selectFn = func(ctx context.Context, level int) (registry.Ticket, error) {
		<-release
		return registry.Ticket{TicketNumber: "1", HolderName: "Ana", Active: 1}, nil
	}
	c := newRegistry(t, reg)
	require.NoError(t, c.LoadCategories(context.Background()))
	require.NoError(t, c.SelectCategory(1))

	_, err := c.Spin()
	require.NoError(t, err)
	waitForState(t, c, StateAwaitingWinner)

	c.Reset()
	close(release)
	time.Sleep(testWait * 2)

	s := c.Session()
	assert.Equal(t, StateIdle, s.State)
	assert.Nil(t, s.Winner)
	assert.Empty(t, s.WinnersHistory)
	assert.Empty(t, s.Error, "stale responses are not surfaced")
	assert.Empty(t, s.Participants)
}

func TestResetDuringSpinStopsLoop(t *testing.T) {
	c := newManual(t, Options{})
	addAll(t, c, "A", "B")

	_, err := c.Spin()
	require.NoError(t, err)
	c.Reset()

	require.Eventually(t, func() bool { return c.Loop().Running() == 0 }, eventual, poll)
	time.Sleep(testSpin + testWait + 20*time.Millisecond)

	s := c.Session()
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.WinnersHistory)
}

func TestHistoryGrowsAcrossSpinsAndPreviousWinnerStaysVisible(t *testing.T) {
	c := newManual(t, Options{})
	addAll(t, c, "A", "B", "C", "D")

	_, err := c.Spin()
	require.NoError(t, err)
	first := waitForState(t, c, StateRevealed)
	require.NotNil(t, first.Winner)

	started, err := c.Spin()
	require.NoError(t, err)
	require.True(t, started, "a revealed drawing accepts the next spin")

	during := c.Session()
	require.NotNil(t, during.Winner)
	assert.Equal(t, first.Winner.ID, during.Winner.ID)

	var second Session
	require.Eventually(t, func() bool {
		second = c.Session()
		return second.State == StateRevealed && len(second.WinnersHistory) == 2
	}, eventual, poll)
	assert.Equal(t, first.WinnersHistory[0], second.WinnersHistory[0])
	assert.Len(t, second.Participants, 2)
}

func TestPoolMutationsRejectedWhileSpinning(t *testing.T) {
	c := newManual(t, Options{})
	pool := addAll(t, c, "A", "B")

	_, err := c.Spin()
	require.NoError(t, err)

	_, err = c.AddParticipant("C")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.RemoveParticipant(pool[0].ID), ErrBusy)
}

func TestManualAndRegistryOperationsAreModeScoped(t *testing.T) {
	manual := newManual(t, Options{})
	assert.ErrorIs(t, manual.SelectCategory(1), ErrRegistryModeOnly)
	assert.ErrorIs(t, manual.LoadCategories(context.Background()), ErrRegistryModeOnly)

	reg := newRegistry(t, &fakeRegistry{tickets: map[int][]registry.Ticket{}})
	_, err := reg.AddParticipant("A")
	assert.ErrorIs(t, err, ErrManualModeOnly)
	assert.ErrorIs(t, reg.SelectCategory(9), ErrUnknownCategory)

	_, err = NewController(Options{Mode: ModeRegistry})
	assert.Error(t, err)
}

func TestAddParticipantValidation(t *testing.T) {
	c := newManual(t, Options{})
	_, err := c.AddParticipant("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	ps := addAll(t, c, "A", "B")
	assert.NotEqual(t, ps[0].ID, ps[1].ID)
	assert.Equal(t, Palette[0], ps[0].ColorTag)
	assert.Equal(t, Palette[1], ps[1].ColorTag)
	assert.ErrorIs(t, c.RemoveParticipant("missing"), ErrParticipantNotFound)

	require.NoError(t, c.RemoveParticipant(ps[0].ID))
	assert.Len(t, c.Balls().Balls, 1)
}

func TestCategoriesListedInOrder(t *testing.T) {
	reg := &fakeRegistry{tickets: map[int][]registry.Ticket{
		3: {{TicketNumber: "a", Active: 1}},
		1: {{TicketNumber: "b", Active: 1}, {TicketNumber: "c", Active: 0}},
	}}
	c := newRegistry(t, reg)
	require.NoError(t, c.LoadCategories(context.Background()))

	cats := c.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, 1, cats[0].ID)
	assert.Equal(t, 1, cats[0].Eligible)
	assert.Equal(t, 3, cats[1].ID)
}

type selectorFunc func(ctx context.Context, pool []Participant, category *int) (Participant, error)

func (f selectorFunc) SelectWinner(ctx context.Context, pool []Participant, category *int) (Participant, error) {
	return f(ctx, pool, category)
}

func TestSetTimingsAppliesToNextSpin(t *testing.T) {
	c := newManual(t, Options{})
	addAll(t, c, "A", "B", "C")

	c.SetTimings(2*testSpin, 0)
	spin, wait := c.Timings()
	assert.Equal(t, 2*testSpin, spin)
	assert.Equal(t, time.Duration(0), wait)

	c.SetTimings(0, -1)
	spin, wait = c.Timings()
	assert.Equal(t, 2*testSpin, spin, "non-positive spin ignored")
	assert.Equal(t, time.Duration(0), wait, "negative wait ignored")

	_, err := c.Spin()
	require.NoError(t, err)
	s := waitForState(t, c, StateRevealed)
	assert.GreaterOrEqual(t, s.AwaitingSince.Sub(*s.SpinStartedAt), 2*testSpin)
}
