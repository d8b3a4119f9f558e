package game

import (
	"time"

	"github.com/coinduel/dueljack/internal/deck"
)

// CardView is a card as shown to a client. A hidden card renders as "?"/"?"
// so the wire shape never leaks the hole card before it is revealed.
type CardView struct {
	Rank       string `json:"rank"`
	Suit       string `json:"suit"`
	JokerValue int    `json:"joker_value,omitempty"`
}

func viewCard(c deck.Card) CardView {
	return CardView{Rank: c.Rank.String(), Suit: c.Suit.String(), JokerValue: c.JokerValue}
}

func hiddenCard() CardView {
	return CardView{Rank: "?", Suit: "?"}
}

// BoxView is one box as shown to a client
type BoxView struct {
	Cards     []CardView     `json:"cards"`
	Wager     int            `json:"wager"`
	Status    BoxStatus      `json:"status"`
	Outcome   BoxOutcome     `json:"outcome,omitempty"`
	Total     int            `json:"total"`
	Soft      bool           `json:"soft,omitempty"`
	Doubled   bool           `json:"doubled,omitempty"`
	IsSplit   bool           `json:"is_split,omitempty"`
	Insurance InsuranceState `json:"insurance"`
}

// DealerView is the dealer hand as shown to a client. Total is only
// populated once the hole card is revealed.
type DealerView struct {
	Cards        []CardView `json:"cards"`
	HoleRevealed bool       `json:"hole_revealed"`
	Total        int        `json:"total,omitempty"`
	Bust         bool       `json:"bust,omitempty"`
}

// PendingView surfaces whose decision the match is waiting on
type PendingView struct {
	Owner    string       `json:"owner"`
	Kind     DecisionKind `json:"kind"`
	Deadline time.Time    `json:"deadline"`
}

// RoundView is the dealt round as shown to a client
type RoundView struct {
	Boxes            []BoxView  `json:"boxes"`
	Dealer           DealerView `json:"dealer"`
	CurrentBox       int        `json:"current_box"`
	InsuranceOffered bool       `json:"insurance_offered,omitempty"`
	Resolved         bool       `json:"resolved,omitempty"`
}

// View is the per-viewer projection of a match. Spectators receive the same
// shape with no affordances; the dealer hole card is masked for everyone
// until the engine reveals it.
type View struct {
	MatchID   string               `json:"match_id"`
	Phase     Phase                `json:"phase"`
	Players   [2]string            `json:"players"`
	Stake     int                  `json:"stake"`
	Viewer    string               `json:"viewer,omitempty"`
	Role      Role                 `json:"role,omitempty"`
	DrawCards map[string]CardView  `json:"draw_cards,omitempty"`
	TurnIndex int                  `json:"turn_index"`
	Turns     []TurnAssignment     `json:"turns,omitempty"`
	Bankroll  int                  `json:"bankroll,omitempty"`
	RoundNum  int                  `json:"round_number,omitempty"`
	Round     *RoundView           `json:"round,omitempty"`
	Pending   *PendingView         `json:"pending,omitempty"`
	Actions   []ActionType         `json:"actions,omitempty"`
	Results   map[string][]int     `json:"results,omitempty"`
	WinnerID  string               `json:"winner_id,omitempty"`
	Draw      bool                 `json:"draw,omitempty"`
	Completed bool                 `json:"completed"`
	Faulted   bool                 `json:"faulted,omitempty"`
	Version   uint64               `json:"version"`
}

// ProjectFor builds the view of m for viewerID. An empty or unknown
// viewerID yields the spectator projection: full public state, no
// affordances.
func ProjectFor(m *Match, viewerID string) View {
	v := View{
		MatchID:   m.ID,
		Phase:     m.Phase,
		Players:   m.Players,
		Stake:     m.Stake,
		TurnIndex: m.TurnIndex,
		Turns:     m.Turns,
		Results:   m.Results,
		WinnerID:  m.WinnerID,
		Draw:      m.Drawn,
		Completed: m.Completed,
		Faulted:   m.Faulted,
		Version:   m.Version,
	}
	participant := m.isParticipant(viewerID)
	if participant {
		v.Viewer = viewerID
	}

	if len(m.DrawCards) > 0 {
		v.DrawCards = make(map[string]CardView, len(m.DrawCards))
		for id, c := range m.DrawCards {
			v.DrawCards[id] = viewCard(c)
		}
	}

	if ta, ok := m.CurrentAssignment(); ok && participant {
		if viewerID == ta.PlayerID {
			v.Role = RolePlayer
		} else {
			v.Role = RoleBank
		}
	}

	if m.Turn != nil {
		v.Bankroll = m.Turn.Bankroll
		v.RoundNum = m.Turn.RoundNumber
		if m.Turn.Round != nil {
			rv := projectRound(m.Turn.Round)
			v.Round = &rv
		}
	}

	if m.Pending != nil {
		v.Pending = &PendingView{Owner: m.Pending.Owner, Kind: m.Pending.Kind, Deadline: m.Pending.Deadline}
	}
	if participant {
		v.Actions = legalActions(m, viewerID)
	}
	return v
}

func projectRound(r *Round) RoundView {
	rv := RoundView{
		CurrentBox:       r.CurrentBox,
		InsuranceOffered: r.InsuranceOffered,
		Resolved:         r.Resolved,
	}
	for _, b := range r.Boxes {
		t := b.Total()
		bv := BoxView{
			Wager:     b.Wager,
			Status:    b.Status,
			Outcome:   b.Outcome,
			Total:     t.Value,
			Soft:      t.Soft,
			Doubled:   b.Doubled,
			IsSplit:   b.IsSplit,
			Insurance: b.Insurance,
		}
		for _, c := range b.Cards {
			bv.Cards = append(bv.Cards, viewCard(c))
		}
		rv.Boxes = append(rv.Boxes, bv)
	}

	dv := DealerView{HoleRevealed: r.HoleRevealed}
	for i, c := range r.DealerCards {
		if i == 1 && !r.HoleRevealed {
			dv.Cards = append(dv.Cards, hiddenCard())
			continue
		}
		dv.Cards = append(dv.Cards, viewCard(c))
	}
	if r.HoleRevealed {
		t := Total(r.DealerCards)
		dv.Total = t.Value
		dv.Bust = t.Bust
	}
	rv.Dealer = dv
	return rv
}

// legalActions lists the actions viewerID could submit right now. It is
// advisory: the engine revalidates on Apply.
func legalActions(m *Match, viewerID string) []ActionType {
	if m.Faulted || m.Completed || m.Pending == nil {
		return nil
	}
	if m.Pending.Owner != viewerID {
		return nil
	}
	switch m.Pending.Kind {
	case DecisionDraw:
		return []ActionType{ActionDraw}
	case DecisionChoice:
		return []ActionType{ActionChoose}
	case DecisionBets:
		return []ActionType{ActionBet}
	case DecisionInsurance:
		return []ActionType{ActionInsurance}
	case DecisionJoker:
		return []ActionType{ActionJoker}
	case DecisionDealer:
		return []ActionType{ActionHit, ActionStand}
	case DecisionResult:
		return []ActionType{ActionContinue}
	case DecisionPlay:
		r := m.Turn.Round
		b := r.Boxes[r.CurrentBox]
		actions := []ActionType{ActionHit, ActionStand}
		if b.CanDouble(m.Turn.Bankroll) {
			actions = append(actions, ActionDouble)
		}
		if b.CanSplit(m.Turn.Bankroll) {
			actions = append(actions, ActionSplit)
		}
		return actions
	}
	return nil
}
