package server

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinduel/dueljack/internal/deck"
	"github.com/coinduel/dueljack/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func modeRules(mode string) (game.Rules, error) {
	return game.ModeRules(mode)
}

// seedMatch persists a deterministic match so action tests are not at the
// mercy of a shuffled draw deck.
func seedMatch(t *testing.T, store Store, id string, now time.Time) {
	t.Helper()
	dd := deck.StackedDrawDeck(
		deck.NewCard(deck.Spades, deck.King),
		deck.NewCard(deck.Spades, deck.Seven),
	)
	m := game.NewMatch(id, "alice", "bob", 1000, game.DefaultRules(), now, game.WithDrawDeck(dd))
	require.NoError(t, store.Save(context.Background(), m, 0))
}

func TestManagerCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	mgr := NewManager(store, modeRules, testLogger())

	view, err := mgr.Create(ctx, "alice", "bob", 1000, "classic")
	require.NoError(t, err)
	assert.NotEmpty(t, view.MatchID)
	assert.Equal(t, game.PhaseCardDraw, view.Phase)
	assert.Equal(t, [2]string{"alice", "bob"}, view.Players)
	assert.Equal(t, 1000, view.Stake)

	// The created match is persisted and viewable.
	again, err := mgr.View(ctx, view.MatchID, "alice")
	require.NoError(t, err)
	assert.Equal(t, view.MatchID, again.MatchID)

	_, err = mgr.Create(ctx, "alice", "alice", 1000, "classic")
	assert.ErrorIs(t, err, game.ErrIllegalAction)
	_, err = mgr.Create(ctx, "alice", "bob", 0, "classic")
	assert.ErrorIs(t, err, game.ErrInvalidBet)
	_, err = mgr.Create(ctx, "alice", "bob", 1000, "bogus")
	assert.Error(t, err)
}

func TestManagerActPersistsAndProjects(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	mClock := quartz.NewMock(t)
	mgr := NewManager(store, modeRules, testLogger(), WithClock(mClock))
	seedMatch(t, store, "m-act", mClock.Now())

	view, err := mgr.Act(ctx, "m-act", "alice", game.Action{Type: game.ActionDraw})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseCardDraw, view.Phase)
	assert.Equal(t, "alice", view.Viewer)

	view, err = mgr.Act(ctx, "m-act", "bob", game.Action{Type: game.ActionDraw})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseChoice, view.Phase)

	// Rejected actions mutate nothing.
	_, err = mgr.Act(ctx, "m-act", "bob", game.Action{Type: game.ActionChoose, Role: game.RolePlayer})
	assert.ErrorIs(t, err, game.ErrIllegalAction)

	_, err = mgr.Act(ctx, "missing", "alice", game.Action{Type: game.ActionDraw})
	assert.ErrorIs(t, err, game.ErrUnknownMatch)

	// The winner's choice lands the match in the betting phase.
	view, err = mgr.Act(ctx, "m-act", "alice", game.Action{Type: game.ActionChoose, Role: game.RolePlayer})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseWaitingBets, view.Phase)
	assert.Equal(t, game.RolePlayer, view.Role)
	assert.Equal(t, 100, view.Bankroll)
}

func TestManagerForfeit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	mClock := quartz.NewMock(t)
	mgr := NewManager(store, modeRules, testLogger(), WithClock(mClock))
	seedMatch(t, store, "m-ff", mClock.Now())

	view, err := mgr.Forfeit(ctx, "m-ff", "bob")
	require.NoError(t, err)
	assert.True(t, view.Completed)
	assert.Equal(t, "alice", view.WinnerID)

	_, err = mgr.Forfeit(ctx, "m-ff", "alice")
	assert.ErrorIs(t, err, game.ErrIllegalAction)
}

func TestManagerSubscribe(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	mClock := quartz.NewMock(t)
	mgr := NewManager(store, modeRules, testLogger(), WithClock(mClock))
	seedMatch(t, store, "m-sub", mClock.Now())

	views, cancel := mgr.Subscribe("m-sub", "bob")
	defer cancel()

	_, err := mgr.Act(ctx, "m-sub", "alice", game.Action{Type: game.ActionDraw})
	require.NoError(t, err)

	select {
	case v := <-views:
		assert.Equal(t, "bob", v.Viewer)
		assert.Equal(t, game.PhaseCardDraw, v.Phase)
	default:
		t.Fatal("expected a view after the action")
	}
}

func TestManagerTimeoutSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore()
	mClock := quartz.NewMock(t)
	mgr := NewManager(store, modeRules, testLogger(),
		WithClock(mClock), WithPollInterval(10*time.Second))
	seedMatch(t, store, "m-sweep", mClock.Now())

	trap := mClock.Trap().TickerFunc("timeout-sweep")
	defer trap.Close()

	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	call := trap.MustWait(ctx)
	call.MustRelease(ctx)

	// Ten seconds in, alice's draw decision has expired and the sweep draws
	// on her behalf, handing the deadline to bob.
	mClock.Advance(10 * time.Second).MustWait(ctx)

	view, err := mgr.View(ctx, "m-sweep", "")
	require.NoError(t, err)
	require.NotNil(t, view.Pending)
	assert.Equal(t, "bob", view.Pending.Owner)
	assert.Contains(t, view.DrawCards, "alice")

	cancel()
	require.NoError(t, <-done)
}
