package game

import "github.com/coinduel/dueljack/internal/deck"

// HandTotal is the evaluated value of a sequence of cards. Soft means an ace
// is still counted as 11; a valued joker is never reduced.
type HandTotal struct {
	Value int  `json:"value"`
	Soft  bool `json:"soft"`
	Bust  bool `json:"bust"`
}

// Total evaluates a hand. Aces count 11 and are reduced to 1 one at a time
// while the total exceeds 21. Jokers contribute their fixed chosen value; an
// unvalued joker counts 0, so callers must gate actions until every joker in
// the hand has been valued.
func Total(cards []deck.Card) HandTotal {
	total := 0
	aces := 0
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return HandTotal{
		Value: total,
		Soft:  aces > 0,
		Bust:  total > 21,
	}
}

// unvaluedJoker returns the index of the first joker whose value has not
// been chosen yet.
func unvaluedJoker(cards []deck.Card) (int, bool) {
	for i, c := range cards {
		if c.IsJoker() && c.JokerValue == 0 {
			return i, true
		}
	}
	return 0, false
}

// bestJokerValue picks the joker value (1-11) producing the highest
// non-busting total for the hand with the joker at index idx. Used for
// timeout fallbacks and the automated dealer.
func bestJokerValue(cards []deck.Card, idx int) int {
	best := 1
	bestTotal := -1
	probe := make([]deck.Card, len(cards))
	copy(probe, cards)
	for v := 1; v <= 11; v++ {
		probe[idx].JokerValue = v
		t := Total(probe)
		if !t.Bust && t.Value > bestTotal {
			bestTotal = t.Value
			best = v
		}
	}
	return best
}
