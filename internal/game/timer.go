package game

import "time"

// DecisionKind names the decision a pending deadline guards
type DecisionKind string

const (
	DecisionDraw      DecisionKind = "draw"
	DecisionChoice    DecisionKind = "choice"
	DecisionBets      DecisionKind = "bets"
	DecisionInsurance DecisionKind = "insurance"
	DecisionJoker     DecisionKind = "joker"
	DecisionPlay      DecisionKind = "play"
	DecisionDealer    DecisionKind = "dealer"
	DecisionResult    DecisionKind = "result"
)

// PendingDecision records the single decision the match is waiting on: who
// owes it, when the engine falls back, and an epoch that makes timeout
// application idempotent. Exactly one of the two players owns any pending
// decision.
type PendingDecision struct {
	Owner    string       `json:"owner"`
	Kind     DecisionKind `json:"kind"`
	Deadline time.Time    `json:"deadline"`
	Epoch    uint64       `json:"epoch"`
}

// expired reports whether the deadline has passed at now
func (p *PendingDecision) expired(now time.Time) bool {
	return !now.Before(p.Deadline)
}
