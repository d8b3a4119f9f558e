package game

import (
	"fmt"
	"time"
)

// DealerMode selects the dealer-role behaviour for a match.
type DealerMode string

const (
	// DealerAuto plays the dealer hand mechanically: hit below 17, stand on
	// 17 and above including soft 17.
	DealerAuto DealerMode = "auto"
	// DealerManual hands the dealer decisions to the bank-role player via
	// the same timer-guarded protocol as player actions.
	DealerManual DealerMode = "manual"
)

// Rules holds the per-match configuration knobs. Stake funding, rake and
// jackpot tables stay outside the engine; callers consume the emitted
// events with their own configuration.
type Rules struct {
	Decks   int  `json:"decks"`
	Jokers  bool `json:"jokers"`
	CutCard int  `json:"cut_card"`

	// TurnStake is the fresh bankroll for a player's first turn.
	// CarryoverBonus is added to the leftover when the same player starts
	// their second turn.
	TurnStake      int `json:"turn_stake"`
	CarryoverBonus int `json:"carryover_bonus"`

	MaxBoxes int `json:"max_boxes"`

	DealerMode DealerMode `json:"dealer_mode"`
	// DealerMinAct is the lowest total at which a manual dealer is offered a
	// choice. With DealerAutoRecover the engine draws a sub-DealerMinAct
	// hand up to 17 before re-offering; without it the dealer keeps manual
	// control at every total.
	DealerMinAct      int  `json:"dealer_min_act"`
	DealerAutoRecover bool `json:"dealer_auto_recover"`

	// MaxRounds caps rounds per turn; zero means the turn runs until the
	// cut card or a depleted bankroll ends it.
	MaxRounds int `json:"max_rounds"`
	// ReshuffleBetweenRounds rebuilds the shoe at a round boundary of the
	// same turn once the cut card is passed. When false the cut card ends
	// the turn instead.
	ReshuffleBetweenRounds bool `json:"reshuffle_between_rounds"`

	DecisionTimeout time.Duration `json:"decision_timeout"`
	ResultDelay     time.Duration `json:"result_delay"`
}

// DefaultRules returns the classic-mode rules
func DefaultRules() Rules {
	return Rules{
		Decks:           2,
		CutCard:         65,
		TurnStake:       100,
		CarryoverBonus:  100,
		MaxBoxes:        3,
		DealerMode:      DealerAuto,
		DecisionTimeout: 10 * time.Second,
		ResultDelay:     5 * time.Second,
	}
}

// ModeRules returns the rules for a named game mode. The four modes mirror
// the deployment history: classic (automated dealer), manual (dealer choice
// at 17-20 with recovery draws below 17), freehand (dealer choice at any
// total), and joker (manual dealer with wildcard jokers in the shoe).
func ModeRules(mode string) (Rules, error) {
	r := DefaultRules()
	switch mode {
	case "classic":
	case "manual":
		r.DealerMode = DealerManual
		r.DealerMinAct = 17
		r.DealerAutoRecover = true
	case "freehand":
		r.DealerMode = DealerManual
		r.DealerMinAct = 1
	case "joker":
		r.Jokers = true
		r.DealerMode = DealerManual
		r.DealerMinAct = 17
		r.DealerAutoRecover = true
	default:
		return Rules{}, fmt.Errorf("unknown game mode %q", mode)
	}
	return r, nil
}

// Validate checks the rule knobs for internally consistent values
func (r Rules) Validate() error {
	if r.Decks < 1 {
		return fmt.Errorf("decks must be positive, got %d", r.Decks)
	}
	if r.TurnStake < 1 {
		return fmt.Errorf("turn stake must be positive, got %d", r.TurnStake)
	}
	// A bankrupt first turn carries zero chips forward, so the bonus alone
	// must fund at least the minimum bet on the second turn.
	if r.CarryoverBonus < 1 {
		return fmt.Errorf("carryover bonus must be positive, got %d", r.CarryoverBonus)
	}
	if r.MaxBoxes < 1 || r.MaxBoxes > 3 {
		return fmt.Errorf("max boxes must be between 1 and 3, got %d", r.MaxBoxes)
	}
	if r.DealerMode != DealerAuto && r.DealerMode != DealerManual {
		return fmt.Errorf("unknown dealer mode %q", r.DealerMode)
	}
	if r.DealerMode == DealerManual && (r.DealerMinAct < 1 || r.DealerMinAct > 20) {
		return fmt.Errorf("dealer min act total must be between 1 and 20, got %d", r.DealerMinAct)
	}
	if r.DecisionTimeout <= 0 {
		return fmt.Errorf("decision timeout must be positive")
	}
	if r.ResultDelay <= 0 {
		return fmt.Errorf("result delay must be positive")
	}
	return nil
}

// dealerPolicy builds the policy implementation selected by the rules
func (r Rules) dealerPolicy() DealerPolicy {
	if r.DealerMode == DealerManual {
		return ManualDealer{MinAct: r.DealerMinAct, AutoRecover: r.DealerAutoRecover}
	}
	return AutoDealer{}
}
