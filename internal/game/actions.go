package game

import "github.com/coinduel/dueljack/internal/deck"

// ActionType represents a player-submitted action
type ActionType string

const (
	ActionDraw      ActionType = "draw"
	ActionChoose    ActionType = "choose"
	ActionBet       ActionType = "bet"
	ActionInsurance ActionType = "insurance"
	ActionJoker     ActionType = "joker"
	ActionHit       ActionType = "hit"
	ActionStand     ActionType = "stand"
	ActionDouble    ActionType = "double"
	ActionSplit     ActionType = "split"
	ActionContinue  ActionType = "continue"
)

// Role is the seat a player holds for one turn
type Role string

const (
	RolePlayer Role = "player"
	RoleBank   Role = "bank"
)

// Action is the single mutating input the engine accepts. Fields beyond
// Type are read per action: Role for choose, Bets for bet, Box/Take for
// insurance, Box for the box plays, Box/Value for joker valuation.
type Action struct {
	Type  ActionType `json:"type"`
	Role  Role       `json:"role,omitempty"`
	Bets  []int      `json:"bets,omitempty"`
	Box   int        `json:"box"`
	Take  bool       `json:"take,omitempty"`
	Value int        `json:"value,omitempty"`
}

// TurnAssignment fixes the two roles for one turn
type TurnAssignment struct {
	PlayerID string `json:"player_id"`
	BankID   string `json:"bank_id"`
}

// TurnState is the live state of the current turn: its shoe, the turn
// bankroll and the round in progress.
type TurnState struct {
	Shoe          *deck.Shoe `json:"shoe"`
	Bankroll      int        `json:"bankroll"`
	StartingChips int        `json:"starting_chips"`
	RoundNumber   int        `json:"round_number"`
	Round         *Round     `json:"round,omitempty"`
}

// Round holds the boxes and dealer hand of one dealt round. CurrentBox is
// the box the player-role holder is acting on; boxes are played left to
// right, with split siblings inserted directly after their origin.
type Round struct {
	Boxes            []*Box      `json:"boxes"`
	DealerCards      []deck.Card `json:"dealer_cards"`
	CurrentBox       int         `json:"current_box"`
	HoleRevealed     bool        `json:"hole_revealed"`
	InsuranceOffered bool        `json:"insurance_offered"`
	TotalInitialBet  int         `json:"total_initial_bet"`
	Resolved         bool        `json:"resolved"`
}

// dealerUpcard returns the dealer's face-up card
func (r *Round) dealerUpcard() deck.Card {
	return r.DealerCards[0]
}

// insuranceSettled reports whether every box has an insurance decision
func (r *Round) insuranceSettled() bool {
	for _, b := range r.Boxes {
		if !b.Insurance.Decided {
			return false
		}
	}
	return true
}
