package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Rank represents a card rank. Joker is a wildcard rank dealt only when the
// match mode enables jokers.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Joker
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Two:
		return "2"
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "10"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	case Joker:
		return "Jo"
	default:
		return "?"
	}
}

// Card represents a playing card. JokerValue is the value the holder fixed
// for a joker (1-11); it is zero until chosen and always zero for non-joker
// cards.
type Card struct {
	Suit       Suit `json:"suit"`
	Rank       Rank `json:"rank"`
	JokerValue int  `json:"joker_value,omitempty"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Value returns the blackjack value of the card. Face cards count 10, aces
// count 11 (the evaluator reduces them as needed), and jokers count their
// chosen value, or 0 while the choice is still pending.
func (c Card) Value() int {
	switch {
	case c.Rank == Joker:
		return c.JokerValue
	case c.Rank == Ace:
		return 11
	case c.Rank >= Ten:
		return 10
	default:
		return int(c.Rank)
	}
}

// DrawRank returns the rank used for the role-assignment draw, 2 low through
// Ace high. Jokers never appear in the draw deck.
func (c Card) DrawRank() int {
	return int(c.Rank)
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsJoker returns true if the card is a joker
func (c Card) IsJoker() bool {
	return c.Rank == Joker
}

// IsTenValue returns true for 10, J, Q and K
func (c Card) IsTenValue() bool {
	return c.Rank >= Ten && c.Rank <= King
}
