package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinduel/dueljack/internal/deck"
)

func TestBoxIsBlackjack(t *testing.T) {
	b := newBox(10)
	b.Cards = []deck.Card{card(deck.Ace), card(deck.King)}
	assert.True(t, b.IsBlackjack())

	// 21 on three cards is an ordinary 21.
	b.Cards = []deck.Card{card(deck.Seven), card(deck.Seven), card(deck.Seven)}
	assert.False(t, b.IsBlackjack())

	// A 21 dealt onto a split ace pays 1:1, never 3:2.
	b.Cards = []deck.Card{card(deck.Ace), card(deck.King)}
	b.FromSplitAces = true
	assert.False(t, b.IsBlackjack())

	// Same for a joker valued to 21 on a hand split from two jokers.
	b = newBox(10)
	b.Cards = []deck.Card{joker(11), card(deck.King)}
	b.FromSplitJokers = true
	assert.False(t, b.IsBlackjack())

	// A doubled hand can no longer be a natural.
	b = newBox(10)
	b.Cards = []deck.Card{card(deck.Ace), card(deck.King)}
	b.Doubled = true
	assert.False(t, b.IsBlackjack())
}

func TestBoxCanDouble(t *testing.T) {
	b := newBox(10)
	b.Cards = []deck.Card{card(deck.Five), card(deck.Six)}
	assert.True(t, b.CanDouble(10))
	assert.False(t, b.CanDouble(9), "bankroll must cover the matching wager")

	b.Cards = append(b.Cards, card(deck.Two))
	assert.False(t, b.CanDouble(100), "double is first-decision only")
}

func TestBoxCanSplit(t *testing.T) {
	b := newBox(10)
	b.Cards = []deck.Card{card(deck.Eight), card(deck.Eight)}
	assert.True(t, b.CanSplit(10))
	assert.False(t, b.CanSplit(9))

	// Any two ten-value cards split.
	b.Cards = []deck.Card{card(deck.King), card(deck.Queen)}
	assert.True(t, b.CanSplit(10))

	b.Cards = []deck.Card{card(deck.King), card(deck.Nine)}
	assert.False(t, b.CanSplit(10))

	// Jokers only pair with jokers.
	b.Cards = []deck.Card{joker(0), joker(0)}
	assert.True(t, b.CanSplit(10))
	b.Cards = []deck.Card{joker(10), card(deck.King)}
	assert.False(t, b.CanSplit(10))
}
