package deck

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// DefaultCutCard is the drawn-card count after which a shoe must be rebuilt
// before the next round begins.
const DefaultCutCard = 65

// ErrShoeExhausted is returned when a draw is attempted past the physical
// end of the shoe. The cut-card policy reshuffles at round boundaries, so
// this surfacing to a player indicates an engine bug, not a playable state.
var ErrShoeExhausted = errors.New("shoe exhausted")

// IndexSource provides random indices in [0, n). The production source reads
// crypto/rand; tests inject deterministic sources.
type IndexSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("failed to read crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}

// CryptoSource returns an IndexSource backed by crypto/rand. Shuffles for
// live matches must never use a statistically-predictable generator.
func CryptoSource() IndexSource {
	return cryptoSource{}
}

// Shoe is a shuffled multi-deck card source with a cut-card depletion
// signal. Fields are exported for state persistence; mutate only through
// Draw.
type Shoe struct {
	Cards      []Card `json:"cards"`
	DrawnCount int    `json:"drawn"`
	CutCard    int    `json:"cut_card"`
}

// NewShoe builds a shoe of deckCount standard decks, plus four jokers per
// deck when jokers are enabled, shuffled with a Fisher-Yates pass over the
// provided index source. A nil source defaults to crypto/rand.
func NewShoe(deckCount int, jokers bool, cutCard int, src IndexSource) *Shoe {
	if src == nil {
		src = cryptoSource{}
	}
	if cutCard <= 0 {
		cutCard = DefaultCutCard
	}

	size := 52 * deckCount
	if jokers {
		size += 4 * deckCount
	}
	cards := make([]Card, 0, size)
	for d := 0; d < deckCount; d++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				cards = append(cards, NewCard(suit, rank))
			}
			if jokers {
				cards = append(cards, NewCard(suit, Joker))
			}
		}
	}
	shuffle(cards, src)

	return &Shoe{Cards: cards, CutCard: cutCard}
}

// StackedShoe builds an unshuffled shoe dealing the given cards in order.
// For deterministic tests only.
func StackedShoe(cutCard int, cards ...Card) *Shoe {
	if cutCard <= 0 {
		cutCard = DefaultCutCard
	}
	return &Shoe{Cards: cards, CutCard: cutCard}
}

// Draw removes and returns the next card from the shoe
func (s *Shoe) Draw() (Card, error) {
	if s.DrawnCount >= len(s.Cards) {
		return Card{}, ErrShoeExhausted
	}
	card := s.Cards[s.DrawnCount]
	s.DrawnCount++
	return card, nil
}

// NeedsReshuffle reports whether the cut card has been passed. It is checked
// at round boundaries only; no hand is ever interrupted by a reshuffle.
func (s *Shoe) NeedsReshuffle() bool {
	return s.DrawnCount >= s.CutCard
}

// Drawn returns how many cards have been drawn from the shoe
func (s *Shoe) Drawn() int {
	return s.DrawnCount
}

// Remaining returns the number of undrawn cards
func (s *Shoe) Remaining() int {
	return len(s.Cards) - s.DrawnCount
}

// shuffle performs an in-place Fisher-Yates shuffle using src for indices
func shuffle(cards []Card, src IndexSource) {
	for i := len(cards) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
