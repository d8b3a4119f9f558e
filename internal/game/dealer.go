package game

// DealerStep is the engine's next move for the dealer hand
type DealerStep int

const (
	// DealerHit forces a draw
	DealerHit DealerStep = iota
	// DealerStand ends the dealer hand
	DealerStand
	// DealerAsk defers the decision to the bank-role player
	DealerAsk
)

// DealerPolicy decides how the dealer hand is played. Two implementations
// exist, selected at match creation: the mechanical AutoDealer and the
// human-driven ManualDealer.
type DealerPolicy interface {
	Next(total HandTotal) DealerStep
}

// AutoDealer hits while the total is below 17 and stands on every 17 or
// higher, soft 17 included. It involves no timer.
type AutoDealer struct{}

func (AutoDealer) Next(t HandTotal) DealerStep {
	if t.Value < 17 {
		return DealerHit
	}
	return DealerStand
}

// ManualDealer offers the bank-role player a hit/stand choice for totals in
// [MinAct, 20]. Below MinAct with AutoRecover the engine draws back up to 17
// before re-offering; without AutoRecover the dealer keeps full manual
// control at every total, sub-17 included. 21 and busts resolve on their
// own.
type ManualDealer struct {
	MinAct      int
	AutoRecover bool
}

func (d ManualDealer) Next(t HandTotal) DealerStep {
	if t.Value >= 21 {
		return DealerStand
	}
	if t.Value < d.MinAct && d.AutoRecover && t.Value < 17 {
		return DealerHit
	}
	return DealerAsk
}
