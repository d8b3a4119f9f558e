package game

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coinduel/dueljack/internal/deck"
)

// Phase is the match's position in the round lifecycle
type Phase string

const (
	PhaseCardDraw      Phase = "CARD_DRAW"
	PhaseChoice        Phase = "CHOICE"
	PhaseWaitingBets   Phase = "WAITING_BETS"
	PhaseInsurance     Phase = "INSURANCE"
	PhasePlayerTurn    Phase = "PLAYER_TURN"
	PhaseDealerTurn    Phase = "DEALER_TURN"
	PhaseRoundResult   Phase = "ROUND_RESULT"
	PhaseMatchComplete Phase = "MATCH_COMPLETE"
)

// Match is the top-level aggregate for one head-to-head stake match. It is
// a plain value the caller loads, mutates through Apply/CheckTimeout/
// Forfeit, and stores atomically keyed on Version. The engine never
// persists anything itself and never reads a clock; every mutating call
// takes an explicit now.
type Match struct {
	ID      string    `json:"id"`
	Players [2]string `json:"players"`
	Stake   int       `json:"stake"`
	Rules   Rules     `json:"rules"`
	Phase   Phase     `json:"phase"`

	DrawDeck   *deck.DrawDeck       `json:"draw_deck,omitempty"`
	DrawCards  map[string]deck.Card `json:"draw_cards,omitempty"`
	DrawWinner string               `json:"draw_winner,omitempty"`

	Turns     []TurnAssignment `json:"turns,omitempty"`
	TurnIndex int              `json:"turn_index"`
	Turn      *TurnState       `json:"turn,omitempty"`

	// Results records each player's finishing chip count per completed
	// player-role turn. The match winner is decided by the final entry,
	// not the cumulative sum.
	Results map[string][]int `json:"results"`

	Pending *PendingDecision `json:"pending,omitempty"`
	Epoch   uint64           `json:"epoch"`

	// Version is bumped on every successful mutation; stores reject a
	// compare-and-swap against a stale version. A live match is never at
	// version 0, so an expected version of 0 uniquely selects the store's
	// create path.
	Version uint64 `json:"version"`

	// Faulted freezes the match after an internal invariant violation.
	Faulted bool `json:"faulted"`

	WinnerID  string `json:"winner_id,omitempty"`
	Drawn     bool   `json:"drawn,omitempty"`
	Completed bool   `json:"completed"`

	logger *log.Logger
	src    deck.IndexSource
	policy DealerPolicy
	shoes  []*deck.Shoe
	events []Event
	now    time.Time
}

// Option configures a new match
type Option func(*Match)

// WithLogger sets the engine logger
func WithLogger(logger *log.Logger) Option {
	return func(m *Match) { m.logger = logger }
}

// WithIndexSource overrides the secure random source used to build shoes.
// For deterministic tests only.
func WithIndexSource(src deck.IndexSource) Option {
	return func(m *Match) { m.src = src }
}

// WithDrawDeck overrides the role-draw deck. For deterministic tests only.
func WithDrawDeck(d *deck.DrawDeck) Option {
	return func(m *Match) { m.DrawDeck = d }
}

// WithShoes queues pre-built shoes consumed turn by turn instead of fresh
// secure shuffles. For deterministic tests only.
func WithShoes(shoes ...*deck.Shoe) Option {
	return func(m *Match) { m.shoes = shoes }
}

// NewMatch creates a match in CARD_DRAW with the first draw decision armed.
// The two players and the stake are fixed for the match's lifetime.
func NewMatch(id, player1, player2 string, stake int, rules Rules, now time.Time, opts ...Option) *Match {
	m := &Match{
		ID:        id,
		Players:   [2]string{player1, player2},
		Stake:     stake,
		Rules:     rules,
		Phase:     PhaseCardDraw,
		DrawCards: make(map[string]deck.Card),
		Results:   make(map[string][]int),
		logger:    log.New(io.Discard),
		src:       deck.CryptoSource(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.DrawDeck == nil {
		m.DrawDeck = deck.NewDrawDeck(m.src)
	}
	m.policy = rules.dealerPolicy()
	m.now = now
	m.arm(player1, DecisionDraw, rules.DecisionTimeout)
	m.events = nil
	m.Version = 1
	return m
}

// Rehydrate reattaches the runtime pieces a persisted match loses: logger,
// secure random source and the dealer policy derived from the rules. Stores
// call it after unmarshalling.
func (m *Match) Rehydrate(logger *log.Logger) {
	if logger != nil {
		m.logger = logger
	} else if m.logger == nil {
		m.logger = log.New(io.Discard)
	}
	if m.src == nil {
		m.src = deck.CryptoSource()
	}
	m.policy = m.Rules.dealerPolicy()
}

// Opponent returns the other participant
func (m *Match) Opponent(playerID string) string {
	if playerID == m.Players[0] {
		return m.Players[1]
	}
	return m.Players[0]
}

func (m *Match) isParticipant(playerID string) bool {
	return playerID == m.Players[0] || playerID == m.Players[1]
}

// CurrentAssignment returns the role assignment of the turn in progress
func (m *Match) CurrentAssignment() (TurnAssignment, bool) {
	if len(m.Turns) == 0 || m.TurnIndex >= len(m.Turns) {
		return TurnAssignment{}, false
	}
	return m.Turns[m.TurnIndex], true
}

// Apply validates and applies one action from actorID at time now. It
// returns the events the mutation emitted; on a player-facing error the
// state is unchanged.
func (m *Match) Apply(actorID string, act Action, now time.Time) ([]Event, error) {
	if m.Faulted {
		return nil, ErrMatchFaulted
	}
	if !m.isParticipant(actorID) {
		return nil, ErrIllegalAction
	}
	if m.Phase == PhaseMatchComplete {
		return nil, ErrIllegalAction
	}
	m.begin(now)

	var err error
	switch act.Type {
	case ActionDraw:
		err = m.applyDraw(actorID)
	case ActionChoose:
		err = m.applyChoice(actorID, act.Role)
	case ActionBet:
		err = m.applyBets(actorID, act.Bets)
	case ActionInsurance:
		err = m.applyInsurance(actorID, act.Box, act.Take)
	case ActionJoker, ActionHit, ActionStand, ActionDouble, ActionSplit:
		if m.Phase == PhaseDealerTurn {
			err = m.applyDealerAction(actorID, act)
		} else {
			err = m.applyBoxAction(actorID, act)
		}
	case ActionContinue:
		err = m.applyContinue(actorID)
	default:
		err = ErrIllegalAction
	}
	if err != nil {
		m.events = nil
		if m.Faulted {
			// A fault mutates state even though the call failed; the caller
			// must persist the frozen match.
			m.Version++
		}
		return nil, err
	}

	m.Version++
	events := m.events
	m.events = nil
	return events, nil
}

// CheckTimeout applies the pending decision's fallback if its deadline has
// passed at now. It is idempotent: once the fallback fires the decision
// epoch advances, so redundant polls are no-ops and a late real action is
// rejected as illegal rather than double-applied.
func (m *Match) CheckTimeout(now time.Time) ([]Event, bool) {
	if m.Faulted || m.Completed || m.Pending == nil {
		return nil, false
	}
	if !m.Pending.expired(now) {
		return nil, false
	}
	m.begin(now)
	p := *m.Pending
	m.emit(DecisionTimedOutEvent{Owner: p.Owner, Kind: p.Kind, ts: now})
	m.logger.Info("decision timed out, applying fallback", "match", m.ID, "owner", p.Owner, "kind", p.Kind)

	var err error
	switch p.Kind {
	case DecisionDraw:
		err = m.applyDraw(p.Owner)
	case DecisionChoice:
		err = m.applyChoice(p.Owner, RolePlayer)
	case DecisionBets:
		err = m.applyBets(p.Owner, []int{1})
	case DecisionInsurance:
		for _, b := range m.Turn.Round.Boxes {
			if !b.Insurance.Decided {
				b.Insurance.Decided = true
			}
		}
		m.resolveInsurance()
	case DecisionJoker:
		err = m.timeoutJoker()
	case DecisionPlay:
		r := m.Turn.Round
		r.Boxes[r.CurrentBox].Status = BoxStand
		m.advancePlay()
	case DecisionDealer:
		err = m.settleRound()
	case DecisionResult:
		err = m.nextRoundOrEndTurn()
	}
	if err != nil {
		// Fallbacks operate on engine-consistent state; an error here is an
		// internal inconsistency, not a rejected call.
		m.fault("timeout fallback failed", err)
	}
	m.Version++
	events := m.events
	m.events = nil
	return events, true
}

// Forfeit ends the match immediately, crediting the forfeiting player's
// opponent with the win regardless of the current phase.
func (m *Match) Forfeit(actorID string, now time.Time) ([]Event, error) {
	if m.Faulted {
		return nil, ErrMatchFaulted
	}
	if !m.isParticipant(actorID) || m.Completed {
		return nil, ErrIllegalAction
	}
	m.begin(now)
	m.WinnerID = m.Opponent(actorID)
	m.Phase = PhaseMatchComplete
	m.Completed = true
	m.Pending = nil
	m.Version++
	m.emit(MatchCompletedEvent{WinnerID: m.WinnerID, Forfeit: true, StakeAmount: m.Stake, ts: now})
	events := m.events
	m.events = nil
	return events, nil
}

func (m *Match) begin(now time.Time) {
	m.now = now
	m.events = nil
}

func (m *Match) emit(e Event) {
	m.events = append(m.events, e)
}

func (m *Match) arm(owner string, kind DecisionKind, d time.Duration) {
	m.Epoch++
	m.Pending = &PendingDecision{
		Owner:    owner,
		Kind:     kind,
		Deadline: m.now.Add(d),
		Epoch:    m.Epoch,
	}
}

func (m *Match) fault(msg string, err error) {
	m.Faulted = true
	m.Pending = nil
	m.logger.Error("match faulted, flagging for manual resolution", "match", m.ID, "reason", msg, "error", err)
}

// drawCard pulls from the turn shoe, faulting the match on underflow: the
// cut-card policy must rebuild the shoe before it can run dry, so an
// exhausted shoe mid-round is an engine bug and never a playable state.
func (m *Match) drawCard() (deck.Card, error) {
	card, err := m.Turn.Shoe.Draw()
	if err != nil {
		m.fault("shoe underflow mid-round", err)
		return deck.Card{}, fmt.Errorf("drawing from shoe: %w", err)
	}
	return card, nil
}

func (m *Match) buildShoe() *deck.Shoe {
	if len(m.shoes) > 0 {
		s := m.shoes[0]
		m.shoes = m.shoes[1:]
		return s
	}
	return deck.NewShoe(m.Rules.Decks, m.Rules.Jokers, m.Rules.CutCard, m.src)
}

// --- CARD_DRAW / CHOICE ---

func (m *Match) applyDraw(actorID string) error {
	if m.Phase != PhaseCardDraw {
		return ErrIllegalAction
	}
	if _, drawn := m.DrawCards[actorID]; drawn {
		return ErrIllegalAction
	}
	card, err := m.DrawDeck.Draw()
	if err != nil {
		m.fault("role draw deck exhausted", err)
		return fmt.Errorf("drawing role card: %w", err)
	}
	m.DrawCards[actorID] = card

	if len(m.DrawCards) < 2 {
		m.arm(m.Opponent(actorID), DecisionDraw, m.Rules.DecisionTimeout)
		return nil
	}

	c1 := m.DrawCards[m.Players[0]]
	c2 := m.DrawCards[m.Players[1]]
	if c1.DrawRank() == c2.DrawRank() {
		// Exact tie redraws from the same deck.
		m.DrawCards = make(map[string]deck.Card)
		m.arm(m.Players[0], DecisionDraw, m.Rules.DecisionTimeout)
		return nil
	}
	winner := m.Players[0]
	if c2.DrawRank() > c1.DrawRank() {
		winner = m.Players[1]
	}
	m.DrawWinner = winner
	m.Phase = PhaseChoice
	m.arm(winner, DecisionChoice, m.Rules.DecisionTimeout)
	m.emit(RolesDrawnEvent{
		Cards:    map[string]deck.Card{m.Players[0]: c1, m.Players[1]: c2},
		WinnerID: winner,
		ts:       m.now,
	})
	return nil
}

func (m *Match) applyChoice(actorID string, role Role) error {
	if m.Phase != PhaseChoice || actorID != m.DrawWinner {
		return ErrIllegalAction
	}
	if role != RolePlayer && role != RoleBank {
		return ErrIllegalAction
	}
	first := actorID
	if role == RoleBank {
		first = m.Opponent(actorID)
	}
	second := m.Opponent(first)

	// Fixed 1-2-2-1 player-role rotation: whoever opens as Player also
	// closes the match, so each player's second turn carries their first
	// turn's leftover chips.
	m.Turns = []TurnAssignment{
		{PlayerID: first, BankID: second},
		{PlayerID: second, BankID: first},
		{PlayerID: second, BankID: first},
		{PlayerID: first, BankID: second},
	}
	m.emit(RoleChosenEvent{ChooserID: actorID, Chosen: role, FirstPlayerID: first, ts: m.now})
	m.startTurn()
	return nil
}

// --- turn lifecycle ---

func (m *Match) startTurn() {
	ta := m.Turns[m.TurnIndex]
	bankroll := m.Rules.TurnStake
	if prior := m.Results[ta.PlayerID]; len(prior) > 0 {
		// Chip carryover: leftover from the earlier turn plus the bonus.
		bankroll = prior[len(prior)-1] + m.Rules.CarryoverBonus
	}
	m.Turn = &TurnState{
		Shoe:          m.buildShoe(),
		Bankroll:      bankroll,
		StartingChips: bankroll,
	}
	m.Phase = PhaseWaitingBets
	m.arm(ta.PlayerID, DecisionBets, m.Rules.DecisionTimeout)
	m.logger.Debug("turn started", "match", m.ID, "turn", m.TurnIndex, "player", ta.PlayerID, "bankroll", bankroll)
	m.emit(TurnStartedEvent{TurnIndex: m.TurnIndex, PlayerID: ta.PlayerID, BankID: ta.BankID, Bankroll: bankroll, ts: m.now})
}

func (m *Match) applyBets(actorID string, bets []int) error {
	ta, ok := m.CurrentAssignment()
	if m.Phase != PhaseWaitingBets || !ok || actorID != ta.PlayerID {
		return ErrIllegalAction
	}
	if len(bets) == 0 || len(bets) > m.Rules.MaxBoxes {
		return fmt.Errorf("%w: must place between 1 and %d box bets", ErrInvalidBet, m.Rules.MaxBoxes)
	}
	total := 0
	for _, amt := range bets {
		if amt < 1 {
			return fmt.Errorf("%w: minimum bet per box is 1", ErrInvalidBet)
		}
		total += amt
	}
	ts := m.Turn
	if total > ts.Bankroll {
		return fmt.Errorf("%w: total bet %d exceeds bankroll %d", ErrInvalidBet, total, ts.Bankroll)
	}

	ts.Bankroll -= total
	round := &Round{TotalInitialBet: total}
	for _, amt := range bets {
		round.Boxes = append(round.Boxes, newBox(amt))
	}
	for _, b := range round.Boxes {
		for i := 0; i < 2; i++ {
			card, err := m.drawCard()
			if err != nil {
				return err
			}
			b.Cards = append(b.Cards, card)
		}
	}
	for i := 0; i < 2; i++ {
		card, err := m.drawCard()
		if err != nil {
			return err
		}
		round.DealerCards = append(round.DealerCards, card)
	}
	ts.RoundNumber++
	ts.Round = round
	m.emit(RoundStartedEvent{
		TurnIndex:   m.TurnIndex,
		RoundNumber: ts.RoundNumber,
		Boxes:       len(round.Boxes),
		Upcard:      round.dealerUpcard(),
		ts:          m.now,
	})

	up := round.dealerUpcard()
	switch {
	case up.IsAce():
		round.InsuranceOffered = true
		m.Phase = PhaseInsurance
		m.arm(ta.PlayerID, DecisionInsurance, m.Rules.DecisionTimeout)
	case up.IsTenValue() && round.DealerCards[1].IsAce():
		// Ten-value upcard peek: dealer blackjack ends the round before any
		// player decision.
		round.HoleRevealed = true
		m.resolveDealerBlackjack()
	default:
		m.markBlackjacks()
		m.enterPlayerTurn()
	}
	return nil
}

func (m *Match) markBlackjacks() {
	for _, b := range m.Turn.Round.Boxes {
		if _, pending := unvaluedJoker(b.Cards); pending {
			continue
		}
		if b.IsBlackjack() {
			b.Status = BoxBlackjack
		}
	}
}

// --- INSURANCE ---

func (m *Match) applyInsurance(actorID string, boxIndex int, take bool) error {
	ta, ok := m.CurrentAssignment()
	if m.Phase != PhaseInsurance || !ok || actorID != ta.PlayerID {
		return ErrIllegalAction
	}
	r := m.Turn.Round
	if boxIndex < 0 || boxIndex >= len(r.Boxes) {
		return ErrUnknownBox
	}
	b := r.Boxes[boxIndex]
	if b.Insurance.Decided {
		return ErrIllegalAction
	}
	if take {
		cost := b.Wager / 2
		if cost > m.Turn.Bankroll {
			cost = m.Turn.Bankroll
		}
		m.Turn.Bankroll -= cost
		b.Insurance = InsuranceState{Decided: true, Taken: true, Amount: cost}
	} else {
		b.Insurance = InsuranceState{Decided: true}
	}

	if r.insuranceSettled() {
		m.resolveInsurance()
		return nil
	}
	m.arm(ta.PlayerID, DecisionInsurance, m.Rules.DecisionTimeout)
	return nil
}

func (m *Match) resolveInsurance() {
	r := m.Turn.Round
	dealerTotal := Total(r.DealerCards)
	dealerBJ := len(r.DealerCards) == 2 && dealerTotal.Value == 21

	payout := 0
	if dealerBJ {
		for _, b := range r.Boxes {
			if b.Insurance.Taken {
				// Insurance pays 2:1 plus the returned premium.
				payout += b.Insurance.Amount * 3
			}
		}
		m.Turn.Bankroll += payout
		r.HoleRevealed = true
		m.emit(InsuranceSettledEvent{DealerBlackjack: true, Payout: payout, ts: m.now})
		m.resolveDealerBlackjack()
		return
	}
	m.emit(InsuranceSettledEvent{ts: m.now})
	m.markBlackjacks()
	m.enterPlayerTurn()
}

// resolveDealerBlackjack settles the round without player decisions: the
// dealer has a natural, so blackjack boxes push and everything else loses.
func (m *Match) resolveDealerBlackjack() {
	r := m.Turn.Round
	for _, b := range r.Boxes {
		if _, pending := unvaluedJoker(b.Cards); !pending && b.IsBlackjack() {
			b.Status = BoxBlackjack
			b.Outcome = OutcomePush
			m.Turn.Bankroll += b.Wager
			continue
		}
		b.Status = BoxStand
		b.Outcome = OutcomeLose
	}
	m.finishRound()
}

// --- PLAYER_TURN ---

func (m *Match) enterPlayerTurn() {
	m.Phase = PhasePlayerTurn
	m.advancePlay()
}

// advancePlay moves the box pointer to the next decision: it skips settled
// boxes, auto-stands any box sitting on 21, and arms the right decision
// kind for the first box still owing one. When no box is left it hands
// control to the dealer.
func (m *Match) advancePlay() {
	ta := m.Turns[m.TurnIndex]
	r := m.Turn.Round
	for r.CurrentBox < len(r.Boxes) {
		b := r.Boxes[r.CurrentBox]
		if b.settled() {
			r.CurrentBox++
			continue
		}
		if _, pending := unvaluedJoker(b.Cards); pending {
			m.Phase = PhasePlayerTurn
			m.arm(ta.PlayerID, DecisionJoker, m.Rules.DecisionTimeout)
			return
		}
		if t := b.Total(); t.Value == 21 {
			if b.IsBlackjack() {
				b.Status = BoxBlackjack
			} else {
				b.Status = BoxStand
			}
			r.CurrentBox++
			continue
		}
		m.Phase = PhasePlayerTurn
		m.arm(ta.PlayerID, DecisionPlay, m.Rules.DecisionTimeout)
		return
	}
	m.enterDealerTurn()
}

func (m *Match) applyBoxAction(actorID string, act Action) error {
	ta, ok := m.CurrentAssignment()
	if m.Phase != PhasePlayerTurn || !ok || actorID != ta.PlayerID {
		return ErrIllegalAction
	}
	r := m.Turn.Round
	if act.Box < 0 || act.Box >= len(r.Boxes) {
		return ErrUnknownBox
	}
	if act.Box != r.CurrentBox {
		return fmt.Errorf("%w: box %d is not the box in play", ErrIllegalAction, act.Box)
	}
	b := r.Boxes[act.Box]
	if b.settled() {
		return ErrIllegalAction
	}

	if idx, pending := unvaluedJoker(b.Cards); pending {
		if act.Type != ActionJoker {
			return fmt.Errorf("%w: joker value must be chosen first", ErrIllegalAction)
		}
		if act.Value < 1 || act.Value > 11 {
			return fmt.Errorf("%w: joker value must be between 1 and 11", ErrIllegalAction)
		}
		b.Cards[idx].JokerValue = act.Value
		m.emit(PlayerActedEvent{PlayerID: actorID, Action: ActionJoker, BoxIndex: act.Box, ts: m.now})
		m.advancePlay()
		return nil
	}

	switch act.Type {
	case ActionHit:
		card, err := m.drawCard()
		if err != nil {
			return err
		}
		b.Cards = append(b.Cards, card)
		if b.Total().Bust {
			b.Status = BoxBust
			b.Outcome = OutcomeLose
		}
	case ActionStand:
		b.Status = BoxStand
	case ActionDouble:
		if len(b.Cards) != 2 || b.Doubled {
			return fmt.Errorf("%w: double is only legal as the first decision", ErrIllegalAction)
		}
		if m.Turn.Bankroll < b.Wager {
			return fmt.Errorf("%w: bankroll cannot cover the doubled wager", ErrInvalidBet)
		}
		m.Turn.Bankroll -= b.Wager
		b.Wager *= 2
		b.Doubled = true
		card, err := m.drawCard()
		if err != nil {
			return err
		}
		if card.IsJoker() {
			// No further decisions follow a double, so the joker takes its
			// best value immediately.
			card.JokerValue = bestJokerValue(append(b.Cards, card), len(b.Cards))
		}
		b.Cards = append(b.Cards, card)
		if b.Total().Bust {
			b.Status = BoxBust
			b.Outcome = OutcomeLose
		} else {
			b.Status = BoxStand
		}
	case ActionSplit:
		if len(b.Cards) != 2 || !splittableRanks(b.Cards[0], b.Cards[1]) {
			return fmt.Errorf("%w: split requires two cards of equal rank value", ErrIllegalAction)
		}
		if m.Turn.Bankroll < b.Wager {
			return fmt.Errorf("%w: bankroll cannot fund the split wager", ErrInvalidBet)
		}
		if err := m.splitBox(r, b); err != nil {
			return err
		}
	default:
		return ErrIllegalAction
	}
	m.emit(PlayerActedEvent{PlayerID: actorID, Action: act.Type, BoxIndex: act.Box, ts: m.now})
	m.advancePlay()
	return nil
}

// splitBox turns one two-card box into two sibling boxes, each completed
// with a fresh card. Re-splitting the siblings is unrestricted.
func (m *Match) splitBox(r *Round, b *Box) error {
	m.Turn.Bankroll -= b.Wager

	first, second := b.Cards[0], b.Cards[1]
	aces := first.IsAce() && second.IsAce()
	jokers := first.IsJoker() && second.IsJoker()
	if jokers {
		// Each split joker is revalued by its new hand's holder.
		first.JokerValue = 0
		second.JokerValue = 0
	}

	sibling := newBox(b.Wager)
	sibling.IsSplit = true
	sibling.FromSplitAces = b.FromSplitAces || aces
	sibling.FromSplitJokers = b.FromSplitJokers || jokers

	b.IsSplit = true
	b.FromSplitAces = b.FromSplitAces || aces
	b.FromSplitJokers = b.FromSplitJokers || jokers

	card, err := m.drawCard()
	if err != nil {
		return err
	}
	b.Cards = []deck.Card{first, card}

	card, err = m.drawCard()
	if err != nil {
		return err
	}
	sibling.Cards = []deck.Card{second, card}

	boxes := make([]*Box, 0, len(r.Boxes)+1)
	boxes = append(boxes, r.Boxes[:r.CurrentBox+1]...)
	boxes = append(boxes, sibling)
	boxes = append(boxes, r.Boxes[r.CurrentBox+1:]...)
	r.Boxes = boxes
	return nil
}

// --- DEALER_TURN ---

func (m *Match) enterDealerTurn() {
	r := m.Turn.Round
	r.HoleRevealed = true

	anyStanding := false
	for _, b := range r.Boxes {
		if b.Status == BoxStand {
			anyStanding = true
			break
		}
	}
	if !anyStanding {
		// Only busts and blackjacks remain; the dealer hand is moot.
		if err := m.settleRound(); err != nil {
			m.fault("settling round", err)
		}
		return
	}
	if err := m.runDealer(); err != nil {
		m.fault("running dealer hand", err)
	}
}

// runDealer plays the dealer hand until it resolves or a manual decision is
// owed to the bank-role player.
func (m *Match) runDealer() error {
	ta := m.Turns[m.TurnIndex]
	r := m.Turn.Round
	manual := m.Rules.DealerMode == DealerManual

	for {
		if idx, pending := unvaluedJoker(r.DealerCards); pending {
			if manual {
				m.Phase = PhaseDealerTurn
				m.arm(ta.BankID, DecisionJoker, m.Rules.DecisionTimeout)
				return nil
			}
			r.DealerCards[idx].JokerValue = bestJokerValue(r.DealerCards, idx)
			continue
		}
		t := Total(r.DealerCards)
		if t.Bust {
			return m.settleRound()
		}
		switch m.policy.Next(t) {
		case DealerHit:
			card, err := m.drawCard()
			if err != nil {
				return err
			}
			r.DealerCards = append(r.DealerCards, card)
			m.emit(DealerActedEvent{BankID: ta.BankID, Action: ActionHit, Total: Total(r.DealerCards).Value, ts: m.now})
		case DealerStand:
			return m.settleRound()
		case DealerAsk:
			m.Phase = PhaseDealerTurn
			m.arm(ta.BankID, DecisionDealer, m.Rules.DecisionTimeout)
			return nil
		}
	}
}

func (m *Match) applyDealerAction(actorID string, act Action) error {
	ta, ok := m.CurrentAssignment()
	if m.Phase != PhaseDealerTurn || !ok || actorID != ta.BankID {
		return ErrIllegalAction
	}
	r := m.Turn.Round

	if m.Pending != nil && m.Pending.Kind == DecisionJoker {
		if act.Type != ActionJoker {
			return fmt.Errorf("%w: dealer joker value must be chosen first", ErrIllegalAction)
		}
		idx, pending := unvaluedJoker(r.DealerCards)
		if !pending {
			return ErrIllegalAction
		}
		if act.Value < 1 || act.Value > 11 {
			return fmt.Errorf("%w: joker value must be between 1 and 11", ErrIllegalAction)
		}
		r.DealerCards[idx].JokerValue = act.Value
		m.emit(DealerActedEvent{BankID: actorID, Action: ActionJoker, Total: Total(r.DealerCards).Value, ts: m.now})
		return m.runDealer()
	}

	switch act.Type {
	case ActionHit:
		card, err := m.drawCard()
		if err != nil {
			return err
		}
		r.DealerCards = append(r.DealerCards, card)
		m.emit(DealerActedEvent{BankID: actorID, Action: ActionHit, Total: Total(r.DealerCards).Value, ts: m.now})
		return m.runDealer()
	case ActionStand:
		m.emit(DealerActedEvent{BankID: actorID, Action: ActionStand, Total: Total(r.DealerCards).Value, ts: m.now})
		return m.settleRound()
	default:
		return fmt.Errorf("%w: dealer may only hit or stand", ErrIllegalAction)
	}
}

// --- ROUND_RESULT ---

// settleRound pays every box against the final dealer hand: blackjack 3:2
// (floored), wins 1:1, pushes returned, busts and losses forfeited.
func (m *Match) settleRound() error {
	r := m.Turn.Round
	r.HoleRevealed = true
	dt := Total(r.DealerCards)
	// A two-card 21 is a natural even when a joker supplied the value,
	// mirroring the player-side blackjack rule.
	dealerBJ := len(r.DealerCards) == 2 && dt.Value == 21

	for _, b := range r.Boxes {
		switch b.Status {
		case BoxBust:
			b.Outcome = OutcomeLose
		case BoxBlackjack:
			if dealerBJ {
				b.Outcome = OutcomePush
				m.Turn.Bankroll += b.Wager
			} else {
				b.Outcome = OutcomeBlackjack
				m.Turn.Bankroll += b.Wager + (3*b.Wager)/2
			}
		case BoxStand:
			pv := b.Total().Value
			switch {
			case dt.Bust || pv > dt.Value:
				b.Outcome = OutcomeWin
				m.Turn.Bankroll += 2 * b.Wager
			case pv == dt.Value:
				b.Outcome = OutcomePush
				m.Turn.Bankroll += b.Wager
			default:
				b.Outcome = OutcomeLose
			}
		default:
			return fmt.Errorf("box settled while still active")
		}
	}
	m.finishRound()
	return nil
}

func (m *Match) finishRound() {
	ta := m.Turns[m.TurnIndex]
	r := m.Turn.Round
	r.Resolved = true
	m.Phase = PhaseRoundResult
	m.emit(RoundSettledEvent{
		TurnIndex:      m.TurnIndex,
		RoundNumber:    m.Turn.RoundNumber,
		FinishingChips: m.Turn.Bankroll,
		StakeAmount:    m.Stake,
		ts:             m.now,
	})
	// The result phase auto-advances after the display delay; the
	// player-role holder may continue early.
	m.arm(ta.PlayerID, DecisionResult, m.Rules.ResultDelay)
}

func (m *Match) applyContinue(actorID string) error {
	ta, ok := m.CurrentAssignment()
	if m.Phase != PhaseRoundResult || !ok || actorID != ta.PlayerID {
		return ErrIllegalAction
	}
	return m.nextRoundOrEndTurn()
}

func (m *Match) nextRoundOrEndTurn() error {
	if m.Phase != PhaseRoundResult {
		return ErrIllegalAction
	}
	ts := m.Turn
	ta := m.Turns[m.TurnIndex]

	if ts.Bankroll <= 0 {
		m.endTurn()
		return nil
	}
	if m.Rules.MaxRounds > 0 && ts.RoundNumber >= m.Rules.MaxRounds {
		m.endTurn()
		return nil
	}
	if ts.Shoe.NeedsReshuffle() {
		if !m.Rules.ReshuffleBetweenRounds {
			m.endTurn()
			return nil
		}
		m.emit(ShoeRebuiltEvent{DrawnBefore: ts.Shoe.Drawn(), ts: m.now})
		ts.Shoe = m.buildShoe()
	}
	ts.Round = nil
	m.Phase = PhaseWaitingBets
	m.arm(ta.PlayerID, DecisionBets, m.Rules.DecisionTimeout)
	return nil
}

func (m *Match) endTurn() {
	ta := m.Turns[m.TurnIndex]
	final := m.Turn.Bankroll
	m.Results[ta.PlayerID] = append(m.Results[ta.PlayerID], final)
	m.emit(TurnEndedEvent{TurnIndex: m.TurnIndex, PlayerID: ta.PlayerID, FinalChips: final, ts: m.now})
	m.logger.Debug("turn ended", "match", m.ID, "turn", m.TurnIndex, "player", ta.PlayerID, "chips", final)

	m.TurnIndex++
	m.Turn = nil
	if m.TurnIndex >= len(m.Turns) {
		m.completeMatch()
		return
	}
	m.startTurn()
}

// completeMatch derives the winner from each player's final-turn chip
// count. An exact tie ends the match drawn; the caller refunds both stakes.
func (m *Match) completeMatch() {
	final1 := lastResult(m.Results[m.Players[0]])
	final2 := lastResult(m.Results[m.Players[1]])

	switch {
	case final1 > final2:
		m.WinnerID = m.Players[0]
	case final2 > final1:
		m.WinnerID = m.Players[1]
	default:
		m.Drawn = true
	}
	m.Phase = PhaseMatchComplete
	m.Completed = true
	m.Pending = nil
	m.emit(MatchCompletedEvent{WinnerID: m.WinnerID, Draw: m.Drawn, StakeAmount: m.Stake, ts: m.now})
	m.logger.Info("match completed", "match", m.ID, "winner", m.WinnerID, "draw", m.Drawn)
}

func lastResult(results []int) int {
	if len(results) == 0 {
		return 0
	}
	return results[len(results)-1]
}

// timeoutJoker values the outstanding joker with its best value on the
// owner's behalf, then resumes whichever side of the table was waiting.
func (m *Match) timeoutJoker() error {
	r := m.Turn.Round
	if m.Phase == PhaseDealerTurn {
		idx, pending := unvaluedJoker(r.DealerCards)
		if !pending {
			return fmt.Errorf("joker decision pending with no unvalued dealer joker")
		}
		r.DealerCards[idx].JokerValue = bestJokerValue(r.DealerCards, idx)
		return m.runDealer()
	}
	b := r.Boxes[r.CurrentBox]
	idx, pending := unvaluedJoker(b.Cards)
	if !pending {
		return fmt.Errorf("joker decision pending with no unvalued joker")
	}
	b.Cards[idx].JokerValue = bestJokerValue(b.Cards, idx)
	m.advancePlay()
	return nil
}
