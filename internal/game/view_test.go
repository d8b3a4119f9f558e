package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinduel/dueljack/internal/deck"
)

func TestViewMasksDealerHole(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Ten), card(deck.Nine),
		card(deck.Nine), card(deck.Eight),
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{10}}, testNow)
	require.NoError(t, err)

	// Everyone sees the upcard and nobody sees the hole, the bank-role
	// holder included.
	for _, viewer := range []string{"alice", "bob", ""} {
		v := ProjectFor(m, viewer)
		require.NotNil(t, v.Round)
		dealer := v.Round.Dealer
		require.Len(t, dealer.Cards, 2)
		assert.Equal(t, "9", dealer.Cards[0].Rank)
		assert.Equal(t, "?", dealer.Cards[1].Rank)
		assert.Equal(t, "?", dealer.Cards[1].Suit)
		assert.False(t, dealer.HoleRevealed)
		assert.Zero(t, dealer.Total)
	}

	// Settling reveals the hole and the total.
	_, err = m.Apply("alice", Action{Type: ActionStand, Box: 0}, testNow)
	require.NoError(t, err)
	v := ProjectFor(m, "")
	assert.True(t, v.Round.Dealer.HoleRevealed)
	assert.Equal(t, "8", v.Round.Dealer.Cards[1].Rank)
	assert.Equal(t, 17, v.Round.Dealer.Total)
}

func TestViewAffordances(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Eight), card(deck.Eight),
		card(deck.Nine), card(deck.Seven),
	)
	m := setupTurn(t, rules, shoe)

	v := ProjectFor(m, "alice")
	assert.Equal(t, []ActionType{ActionBet}, v.Actions)
	assert.Equal(t, RolePlayer, v.Role)

	// The bank-role holder has nothing to do while bets are open.
	v = ProjectFor(m, "bob")
	assert.Empty(t, v.Actions)
	assert.Equal(t, RoleBank, v.Role)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{10}}, testNow)
	require.NoError(t, err)

	// A pair with funds offers all four plays.
	v = ProjectFor(m, "alice")
	assert.ElementsMatch(t, []ActionType{ActionHit, ActionStand, ActionDouble, ActionSplit}, v.Actions)

	// Spectators get the full public state but no affordances.
	v = ProjectFor(m, "")
	assert.Empty(t, v.Actions)
	assert.Empty(t, v.Viewer)
	assert.NotNil(t, v.Round)
}

func TestViewMatchComplete(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	m := setupTurn(t, rules, deck.StackedShoe(1000))

	_, err = m.Forfeit("bob", testNow)
	require.NoError(t, err)

	v := ProjectFor(m, "alice")
	assert.True(t, v.Completed)
	assert.Equal(t, "alice", v.WinnerID)
	assert.Empty(t, v.Actions)
	assert.Nil(t, v.Pending)
}
