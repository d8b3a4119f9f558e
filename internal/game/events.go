package game

import (
	"time"

	"github.com/coinduel/dueljack/internal/deck"
)

// EventType represents a match event type with type safety
type EventType string

const (
	EventTypeRolesDrawn       EventType = "roles_drawn"
	EventTypeRoleChosen       EventType = "role_chosen"
	EventTypeTurnStarted      EventType = "turn_started"
	EventTypeRoundStarted     EventType = "round_started"
	EventTypeInsuranceSettled EventType = "insurance_settled"
	EventTypePlayerActed      EventType = "player_acted"
	EventTypeDealerActed      EventType = "dealer_acted"
	EventTypeShoeRebuilt      EventType = "shoe_rebuilt"
	EventTypeRoundSettled     EventType = "round_settled"
	EventTypeTurnEnded        EventType = "turn_ended"
	EventTypeDecisionTimedOut EventType = "decision_timed_out"
	EventTypeMatchCompleted   EventType = "match_completed"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event represents anything that happened while applying an action. The
// caller persists the returned state and forwards events to whoever is
// listening; ledger and jackpot components consume the terminal ones.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// RolesDrawnEvent is published when both players have drawn and the draw
// resolved. Ties redraw and publish nothing.
type RolesDrawnEvent struct {
	Cards    map[string]deck.Card
	WinnerID string
	ts       time.Time
}

func (e RolesDrawnEvent) EventType() EventType { return EventTypeRolesDrawn }
func (e RolesDrawnEvent) Timestamp() time.Time { return e.ts }

// RoleChosenEvent is published when the draw winner picks a role
type RoleChosenEvent struct {
	ChooserID     string
	Chosen        Role
	FirstPlayerID string
	ts            time.Time
}

func (e RoleChosenEvent) EventType() EventType { return EventTypeRoleChosen }
func (e RoleChosenEvent) Timestamp() time.Time { return e.ts }

// TurnStartedEvent is published when a turn's bankroll is established
type TurnStartedEvent struct {
	TurnIndex int
	PlayerID  string
	BankID    string
	Bankroll  int
	ts        time.Time
}

func (e TurnStartedEvent) EventType() EventType { return EventTypeTurnStarted }
func (e TurnStartedEvent) Timestamp() time.Time { return e.ts }

// RoundStartedEvent is published once the bets are placed and cards dealt
type RoundStartedEvent struct {
	TurnIndex   int
	RoundNumber int
	Boxes       int
	Upcard      deck.Card
	ts          time.Time
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }
func (e RoundStartedEvent) Timestamp() time.Time { return e.ts }

// InsuranceSettledEvent is published when the dealer hand is peeked after
// the insurance decisions.
type InsuranceSettledEvent struct {
	DealerBlackjack bool
	Payout          int
	ts              time.Time
}

func (e InsuranceSettledEvent) EventType() EventType { return EventTypeInsuranceSettled }
func (e InsuranceSettledEvent) Timestamp() time.Time { return e.ts }

// PlayerActedEvent is published for each applied box action
type PlayerActedEvent struct {
	PlayerID string
	Action   ActionType
	BoxIndex int
	ts       time.Time
}

func (e PlayerActedEvent) EventType() EventType { return EventTypePlayerActed }
func (e PlayerActedEvent) Timestamp() time.Time { return e.ts }

// DealerActedEvent is published for each dealer move, manual or automated
type DealerActedEvent struct {
	BankID string
	Action ActionType
	Total  int
	ts     time.Time
}

func (e DealerActedEvent) EventType() EventType { return EventTypeDealerActed }
func (e DealerActedEvent) Timestamp() time.Time { return e.ts }

// ShoeRebuiltEvent is published when the cut card forces a reshuffle at a
// round boundary.
type ShoeRebuiltEvent struct {
	DrawnBefore int
	ts          time.Time
}

func (e ShoeRebuiltEvent) EventType() EventType { return EventTypeShoeRebuilt }
func (e ShoeRebuiltEvent) Timestamp() time.Time { return e.ts }

// RoundSettledEvent is the per-round terminal event consumed by external
// ledger and jackpot components.
type RoundSettledEvent struct {
	TurnIndex      int
	RoundNumber    int
	FinishingChips int
	StakeAmount    int
	ts             time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.ts }

// TurnEndedEvent is published when a turn's final chip count is recorded
type TurnEndedEvent struct {
	TurnIndex  int
	PlayerID   string
	FinalChips int
	ts         time.Time
}

func (e TurnEndedEvent) EventType() EventType { return EventTypeTurnEnded }
func (e TurnEndedEvent) Timestamp() time.Time { return e.ts }

// DecisionTimedOutEvent is published when a deadline fires and the fallback
// action is applied on the owner's behalf.
type DecisionTimedOutEvent struct {
	Owner string
	Kind  DecisionKind
	ts    time.Time
}

func (e DecisionTimedOutEvent) EventType() EventType { return EventTypeDecisionTimedOut }
func (e DecisionTimedOutEvent) Timestamp() time.Time { return e.ts }

// MatchCompletedEvent is the terminal event naming the winner. Draw is set
// on an exact final-chip tie, in which case the caller refunds both stakes.
type MatchCompletedEvent struct {
	WinnerID    string
	Draw        bool
	Forfeit     bool
	StakeAmount int
	ts          time.Time
}

func (e MatchCompletedEvent) EventType() EventType { return EventTypeMatchCompleted }
func (e MatchCompletedEvent) Timestamp() time.Time { return e.ts }
