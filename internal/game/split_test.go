package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinduel/dueljack/internal/deck"
)

func TestSplitAcesPayOneToOne(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Ace), card(deck.Ace), // box
		card(deck.Nine), card(deck.Seven), // dealer: 16
		card(deck.King),  // box 0 after split: 21
		card(deck.Queen), // box 1 after split: 21
		card(deck.Three), // dealer draws to 19
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{10}}, testNow)
	require.NoError(t, err)
	require.Equal(t, PhasePlayerTurn, m.Phase)

	// Both split hands land on 21, auto-stand, and beat the dealer 19 at
	// even money rather than 3:2.
	_, err = m.Apply("alice", Action{Type: ActionSplit, Box: 0}, testNow)
	require.NoError(t, err)
	require.Equal(t, PhaseRoundResult, m.Phase)

	boxes := m.Turn.Round.Boxes
	require.Len(t, boxes, 2)
	for _, b := range boxes {
		assert.True(t, b.FromSplitAces)
		assert.Equal(t, OutcomeWin, b.Outcome)
	}
	assert.Equal(t, 120, m.Turn.Bankroll)
}

func TestResplitIsUnlimited(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Eight), card(deck.Eight), // box
		card(deck.Nine), card(deck.Nine), // dealer: 18
		card(deck.Eight), // first split: box 0 pairs up again
		card(deck.Two),   // first split: sibling
		card(deck.Three), // second split: box 0
		card(deck.Five),  // second split: sibling
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{10}}, testNow)
	require.NoError(t, err)

	_, err = m.Apply("alice", Action{Type: ActionSplit, Box: 0}, testNow)
	require.NoError(t, err)
	require.Len(t, m.Turn.Round.Boxes, 2)

	// The re-dealt pair splits again even though three boxes now exceed the
	// initial box cap.
	_, err = m.Apply("alice", Action{Type: ActionSplit, Box: 0}, testNow)
	require.NoError(t, err)
	require.Len(t, m.Turn.Round.Boxes, 3)
	assert.Equal(t, 70, m.Turn.Bankroll, "each split funds a matching wager")
	for _, b := range m.Turn.Round.Boxes {
		assert.True(t, b.IsSplit)
	}
}

func TestSplitRequiresFunds(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Eight), card(deck.Eight),
		card(deck.Nine), card(deck.Nine),
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{60}}, testNow)
	require.NoError(t, err)

	_, err = m.Apply("alice", Action{Type: ActionSplit, Box: 0}, testNow)
	assert.ErrorIs(t, err, ErrInvalidBet)
	assert.Len(t, m.Turn.Round.Boxes, 1)
	assert.Equal(t, 40, m.Turn.Bankroll)
}

func TestDoubleDown(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Five), card(deck.Six), // box: 11
		card(deck.Nine), card(deck.Eight), // dealer: 17
		card(deck.Ten), // doubled card: 21
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{10}}, testNow)
	require.NoError(t, err)

	_, err = m.Apply("alice", Action{Type: ActionDouble, Box: 0}, testNow)
	require.NoError(t, err)
	require.Equal(t, PhaseRoundResult, m.Phase)

	b := m.Turn.Round.Boxes[0]
	assert.True(t, b.Doubled)
	assert.Equal(t, 20, b.Wager)
	assert.Equal(t, OutcomeWin, b.Outcome)
	assert.Equal(t, 120, m.Turn.Bankroll, "the doubled wager wins 1:1")
}

func TestDoubleRequiresFunds(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Five), card(deck.Six),
		card(deck.Nine), card(deck.Eight),
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{60}}, testNow)
	require.NoError(t, err)

	_, err = m.Apply("alice", Action{Type: ActionDouble, Box: 0}, testNow)
	assert.ErrorIs(t, err, ErrInvalidBet)
	assert.False(t, m.Turn.Round.Boxes[0].Doubled)
}

func TestDoubleIsFirstDecisionOnly(t *testing.T) {
	rules, err := ModeRules("classic")
	require.NoError(t, err)
	shoe := deck.StackedShoe(1000,
		card(deck.Five), card(deck.Six),
		card(deck.Nine), card(deck.Eight),
		card(deck.Two), // hit: 13
	)
	m := setupTurn(t, rules, shoe)

	_, err = m.Apply("alice", Action{Type: ActionBet, Bets: []int{10}}, testNow)
	require.NoError(t, err)
	_, err = m.Apply("alice", Action{Type: ActionHit, Box: 0}, testNow)
	require.NoError(t, err)

	_, err = m.Apply("alice", Action{Type: ActionDouble, Box: 0}, testNow)
	assert.ErrorIs(t, err, ErrIllegalAction)
}
