package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/coinduel/dueljack/internal/game"
	"github.com/coinduel/dueljack/internal/matchid"
)

// Manager owns the match lifecycle: it loads state, drives the engine,
// persists the result and fans updated views out to subscribers. Actions on
// the same match are serialized through a per-match mutex; the store's
// version check catches writers on other nodes.
type Manager struct {
	store  Store
	clock  quartz.Clock
	logger *log.Logger
	rules  func(mode string) (game.Rules, error)
	poll   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	subs  map[string]map[*subscription]struct{}
}

type subscription struct {
	viewerID string
	ch       chan game.View
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock overrides the real clock. For tests.
func WithClock(clock quartz.Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithPollInterval sets the timeout sweep interval
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.poll = d }
}

// NewManager creates a match manager on top of store. rules resolves a game
// mode name to the effective rules; pass (*Config).Rules.
func NewManager(store Store, rules func(string) (game.Rules, error), logger *log.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("manager"),
		rules:  rules,
		poll:   500 * time.Millisecond,
		locks:  make(map[string]*sync.Mutex),
		subs:   make(map[string]map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives the timeout sweep until ctx is cancelled. Every pending
// decision deadline is enforced here, so a deployment that never calls Run
// would wait on absent players forever.
func (m *Manager) Run(ctx context.Context) error {
	tkr := m.clock.TickerFunc(ctx, m.poll, func() error {
		m.sweepTimeouts(ctx)
		return nil
	}, "timeout-sweep")
	if err := tkr.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Create starts a new match between two players and persists it
func (m *Manager) Create(ctx context.Context, player1, player2 string, stake int, mode string) (game.View, error) {
	if player1 == "" || player2 == "" || player1 == player2 {
		return game.View{}, game.ErrIllegalAction
	}
	if stake < 1 {
		return game.View{}, game.ErrInvalidBet
	}
	rules, err := m.rules(mode)
	if err != nil {
		return game.View{}, err
	}

	now := m.clock.Now()
	match := game.NewMatch(matchid.New(now), player1, player2, stake, rules, now, game.WithLogger(m.logger))
	if err := m.store.Save(ctx, match, 0); err != nil {
		return game.View{}, err
	}
	m.logger.Info("match created", "match", match.ID, "players", match.Players, "stake", stake, "mode", mode)
	return game.ProjectFor(match, ""), nil
}

// Act applies one player action and returns the actor's updated view
func (m *Manager) Act(ctx context.Context, matchID, actorID string, act game.Action) (game.View, error) {
	var view game.View
	err := m.withMatch(ctx, matchID, func(match *game.Match, expected uint64) (bool, error) {
		events, err := match.Apply(actorID, act, m.clock.Now())
		if err != nil {
			// Faults freeze state that must still be persisted.
			return match.Faulted, err
		}
		m.logEvents(match.ID, events)
		view = game.ProjectFor(match, actorID)
		return true, nil
	})
	return view, err
}

// Forfeit concedes the match on the actor's behalf
func (m *Manager) Forfeit(ctx context.Context, matchID, actorID string) (game.View, error) {
	var view game.View
	err := m.withMatch(ctx, matchID, func(match *game.Match, expected uint64) (bool, error) {
		events, err := match.Forfeit(actorID, m.clock.Now())
		if err != nil {
			return false, err
		}
		m.logEvents(match.ID, events)
		view = game.ProjectFor(match, actorID)
		return true, nil
	})
	return view, err
}

// View returns viewerID's projection of the match without mutating it
func (m *Manager) View(ctx context.Context, matchID, viewerID string) (game.View, error) {
	match, err := m.store.Load(ctx, matchID)
	if err != nil {
		return game.View{}, err
	}
	match.Rehydrate(m.logger)
	return game.ProjectFor(match, viewerID), nil
}

// Subscribe registers a view stream for one viewer of one match. The
// returned cancel function must be called when the consumer goes away;
// slow consumers miss intermediate views rather than blocking the engine.
func (m *Manager) Subscribe(matchID, viewerID string) (<-chan game.View, func()) {
	sub := &subscription{viewerID: viewerID, ch: make(chan game.View, 8)}
	m.mu.Lock()
	if m.subs[matchID] == nil {
		m.subs[matchID] = make(map[*subscription]struct{})
	}
	m.subs[matchID][sub] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if set, ok := m.subs[matchID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(m.subs, matchID)
			}
		}
		m.mu.Unlock()
	}
	return sub.ch, cancel
}

// withMatch runs fn with the match loaded and the per-match lock held, then
// persists and broadcasts when fn reports a mutation.
func (m *Manager) withMatch(ctx context.Context, matchID string, fn func(*game.Match, uint64) (bool, error)) error {
	lock := m.matchLock(matchID)
	lock.Lock()
	defer lock.Unlock()

	match, err := m.store.Load(ctx, matchID)
	if err != nil {
		return err
	}
	match.Rehydrate(m.logger)
	expected := match.Version

	mutated, applyErr := fn(match, expected)
	if mutated {
		if err := m.store.Save(ctx, match, expected); err != nil {
			return err
		}
		m.broadcast(match)
	}
	return applyErr
}

func (m *Manager) matchLock(matchID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[matchID] = lock
	}
	return lock
}

// sweepTimeouts enforces pending deadlines across all active matches
func (m *Manager) sweepTimeouts(ctx context.Context) {
	ids, err := m.store.ActiveIDs(ctx)
	if err != nil {
		m.logger.Error("listing active matches", "error", err)
		return
	}
	for _, id := range ids {
		err := m.withMatch(ctx, id, func(match *game.Match, expected uint64) (bool, error) {
			events, fired := match.CheckTimeout(m.clock.Now())
			if !fired {
				return false, nil
			}
			m.logEvents(match.ID, events)
			return true, nil
		})
		if err != nil && !errors.Is(err, game.ErrUnknownMatch) {
			m.logger.Error("timeout sweep failed", "match", id, "error", err)
		}
	}
}

// broadcast pushes fresh per-viewer projections to every subscriber
func (m *Manager) broadcast(match *game.Match) {
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.subs[match.ID]))
	for sub := range m.subs[match.ID] {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		view := game.ProjectFor(match, sub.viewerID)
		select {
		case sub.ch <- view:
		default:
			m.logger.Warn("dropping view for slow subscriber", "match", match.ID, "viewer", sub.viewerID)
		}
	}
}

func (m *Manager) logEvents(matchID string, events []game.Event) {
	for _, e := range events {
		m.logger.Debug("event", "match", matchID, "type", e.EventType())
	}
}
