package deck

// DrawDeck is the dedicated single 52-card deck used for the
// role-assignment card draw. It is never the match shoe.
type DrawDeck struct {
	Cards []Card `json:"cards"`
	Pos   int    `json:"pos"`
}

// NewDrawDeck builds a shuffled single deck without jokers. A nil source
// defaults to crypto/rand.
func NewDrawDeck(src IndexSource) *DrawDeck {
	if src == nil {
		src = cryptoSource{}
	}
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	shuffle(cards, src)
	return &DrawDeck{Cards: cards}
}

// StackedDrawDeck builds an unshuffled draw deck dealing the given cards in
// order. For deterministic tests only.
func StackedDrawDeck(cards ...Card) *DrawDeck {
	return &DrawDeck{Cards: cards}
}

// Draw removes and returns the next card
func (d *DrawDeck) Draw() (Card, error) {
	if d.Pos >= len(d.Cards) {
		return Card{}, ErrShoeExhausted
	}
	card := d.Cards[d.Pos]
	d.Pos++
	return card, nil
}
