package game

import "github.com/coinduel/dueljack/internal/deck"

// BoxStatus tracks where a box is in its round lifecycle
type BoxStatus string

const (
	BoxActive    BoxStatus = "active"
	BoxStand     BoxStatus = "stand"
	BoxBust      BoxStatus = "bust"
	BoxBlackjack BoxStatus = "blackjack"
)

// BoxOutcome is the settled result of a box against the final dealer hand
type BoxOutcome string

const (
	OutcomePending   BoxOutcome = ""
	OutcomeWin       BoxOutcome = "win"
	OutcomeLose      BoxOutcome = "lose"
	OutcomePush      BoxOutcome = "push"
	OutcomeBlackjack BoxOutcome = "blackjack"
)

// InsuranceState records the per-box insurance decision. Amount is half the
// box wager, capped at the remaining bankroll when taken.
type InsuranceState struct {
	Decided bool `json:"decided"`
	Taken   bool `json:"taken"`
	Amount  int  `json:"amount"`
}

// Box is one of up to three simultaneous player hands within a round.
// Splitting inserts a sibling box with its own wager.
type Box struct {
	Cards           []deck.Card    `json:"cards"`
	Wager           int            `json:"wager"`
	IsSplit         bool           `json:"is_split"`
	FromSplitAces   bool           `json:"from_split_aces"`
	FromSplitJokers bool           `json:"from_split_jokers"`
	Doubled         bool           `json:"doubled"`
	Status          BoxStatus      `json:"status"`
	Outcome         BoxOutcome     `json:"outcome,omitempty"`
	Insurance       InsuranceState `json:"insurance"`
}

func newBox(wager int) *Box {
	return &Box{Wager: wager, Status: BoxActive}
}

// Total evaluates the box's cards
func (b *Box) Total() HandTotal {
	return Total(b.Cards)
}

// IsBlackjack reports an untouched two-card 21. A 21 reached after splitting
// aces is an ordinary 21 paying 1:1, and a joker-made 21 on a hand produced
// by splitting two jokers never counts as blackjack.
func (b *Box) IsBlackjack() bool {
	if len(b.Cards) != 2 || b.Doubled {
		return false
	}
	if b.FromSplitAces || b.FromSplitJokers {
		return false
	}
	return b.Total().Value == 21
}

// CanDouble reports whether doubling is legal as the box's next decision:
// exactly two cards, not already doubled, and enough bankroll to match the
// wager. Doubling after a split stays legal.
func (b *Box) CanDouble(bankroll int) bool {
	return len(b.Cards) == 2 && !b.Doubled && b.Status == BoxActive && bankroll >= b.Wager
}

// CanSplit reports whether splitting is legal: exactly two cards of equal
// rank-value (any two ten-value cards match, jokers match jokers) and enough
// bankroll to fund the sibling wager. Re-splitting is unrestricted.
func (b *Box) CanSplit(bankroll int) bool {
	if len(b.Cards) != 2 || b.Status != BoxActive {
		return false
	}
	return splittableRanks(b.Cards[0], b.Cards[1]) && bankroll >= b.Wager
}

func splittableRanks(a, bb deck.Card) bool {
	if a.IsJoker() || bb.IsJoker() {
		return a.IsJoker() && bb.IsJoker()
	}
	if a.IsTenValue() && bb.IsTenValue() {
		return true
	}
	return a.Rank == bb.Rank
}

// settled reports whether the box no longer awaits a player decision
func (b *Box) settled() bool {
	return b.Status != BoxActive
}
