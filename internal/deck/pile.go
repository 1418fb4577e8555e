package deck

import rand "math/rand/v2"

// Pile is an ordered stack of cards with LIFO semantics: the top is the
// most recently placed card. Both the draw pile and the discard pile are
// Piles; the zero value is an empty pile ready for use.
type Pile struct {
	cards []Card
}

// NewStandardPile builds all 52 suit×rank combinations, unshuffled.
func NewStandardPile() *Pile {
	p := &Pile{cards: make([]Card, 0, 52)}
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Ace; rank <= King; rank++ {
			p.PushTop(NewCard(suit, rank))
		}
	}
	return p
}

// PushTop places a card on top of the pile
func (p *Pile) PushTop(card Card) {
	p.cards = append(p.cards, card)
}

// PushBottom slides a card under the pile
func (p *Pile) PushBottom(card Card) {
	p.cards = append([]Card{card}, p.cards...)
}

// DrawTop removes and returns the top card. The second return is false
// if the pile is empty.
func (p *Pile) DrawTop() (Card, bool) {
	if len(p.cards) == 0 {
		return Card{}, false
	}
	card := p.cards[len(p.cards)-1]
	p.cards = p.cards[:len(p.cards)-1]
	return card, true
}

// PeekTop returns the top card without removing it
func (p *Pile) PeekTop() (Card, bool) {
	if len(p.cards) == 0 {
		return Card{}, false
	}
	return p.cards[len(p.cards)-1], true
}

// TakeBeneathTop removes and returns the card directly beneath the top
// card, leaving the top in place. Used for the illegal-play penalty,
// which hands out the previous matching target without disturbing the
// current one. Returns false if the pile holds fewer than two cards.
func (p *Pile) TakeBeneathTop() (Card, bool) {
	if len(p.cards) < 2 {
		return Card{}, false
	}
	card := p.cards[len(p.cards)-2]
	p.cards = append(p.cards[:len(p.cards)-2], p.cards[len(p.cards)-1])
	return card, true
}

// Shuffle applies a uniform random permutation using the provided rng
func (p *Pile) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(p.cards), func(i, j int) {
		p.cards[i], p.cards[j] = p.cards[j], p.cards[i]
	})
}

// Len returns the number of cards in the pile
func (p *Pile) Len() int {
	return len(p.cards)
}

// Empty returns true if the pile has no cards
func (p *Pile) Empty() bool {
	return len(p.cards) == 0
}

// RecycleInto moves every card except the top of this pile into dst and
// shuffles dst, keeping the top card in place as the matching target.
// Callers invoke this on the discard pile whenever a draw is requested
// against an empty draw pile.
func (p *Pile) RecycleInto(dst *Pile, rng *rand.Rand) {
	top, ok := p.DrawTop()
	if !ok {
		return
	}
	for {
		card, ok := p.DrawTop()
		if !ok {
			break
		}
		dst.PushTop(card)
	}
	dst.Shuffle(rng)
	p.PushTop(top)
}
