package deck

import (
	"testing"

	"github.com/lox/maoserver/internal/randutil"
)

func TestStandardPileComplete(t *testing.T) {
	t.Parallel()
	p := NewStandardPile()

	if p.Len() != 52 {
		t.Fatalf("standard pile has %d cards, want 52", p.Len())
	}

	seen := make(map[Card]bool)
	for {
		card, ok := p.DrawTop()
		if !ok {
			break
		}
		if seen[card] {
			t.Errorf("duplicate card %v", card)
		}
		seen[card] = true
	}
	if len(seen) != 52 {
		t.Errorf("drew %d unique cards, want 52", len(seen))
	}
}

func TestPileLIFO(t *testing.T) {
	t.Parallel()
	p := &Pile{}
	a := NewCard(Hearts, Ace)
	b := NewCard(Spades, King)

	p.PushTop(a)
	p.PushTop(b)

	if top, _ := p.PeekTop(); top != b {
		t.Errorf("top = %v, want %v", top, b)
	}
	if card, _ := p.DrawTop(); card != b {
		t.Errorf("first draw = %v, want %v", card, b)
	}
	if card, _ := p.DrawTop(); card != a {
		t.Errorf("second draw = %v, want %v", card, a)
	}
	if _, ok := p.DrawTop(); ok {
		t.Error("draw from empty pile should fail")
	}
}

func TestPushBottom(t *testing.T) {
	t.Parallel()
	p := &Pile{}
	p.PushTop(NewCard(Hearts, Two))
	p.PushBottom(NewCard(Clubs, Three))

	if top, _ := p.PeekTop(); top != NewCard(Hearts, Two) {
		t.Errorf("PushBottom changed the top: %v", top)
	}
	p.DrawTop()
	if card, _ := p.DrawTop(); card != NewCard(Clubs, Three) {
		t.Errorf("bottom card = %v, want 3♣", card)
	}
}

func TestTakeBeneathTop(t *testing.T) {
	t.Parallel()
	p := &Pile{}
	bottom := NewCard(Diamonds, Four)
	beneath := NewCard(Clubs, Five)
	top := NewCard(Hearts, Six)
	p.PushTop(bottom)
	p.PushTop(beneath)
	p.PushTop(top)

	card, ok := p.TakeBeneathTop()
	if !ok || card != beneath {
		t.Fatalf("TakeBeneathTop = %v, %v, want %v", card, ok, beneath)
	}
	if got, _ := p.PeekTop(); got != top {
		t.Errorf("top disturbed: %v, want %v", got, top)
	}
	if p.Len() != 2 {
		t.Errorf("pile has %d cards, want 2", p.Len())
	}
}

func TestTakeBeneathTopShortPile(t *testing.T) {
	t.Parallel()
	p := &Pile{}
	if _, ok := p.TakeBeneathTop(); ok {
		t.Error("empty pile should not yield a card")
	}
	p.PushTop(NewCard(Hearts, Ace))
	if _, ok := p.TakeBeneathTop(); ok {
		t.Error("single-card pile should not yield a card")
	}
	if p.Len() != 1 {
		t.Errorf("pile mutated: %d cards", p.Len())
	}
}

func TestShufflePreservesCards(t *testing.T) {
	t.Parallel()
	p := NewStandardPile()
	p.Shuffle(randutil.New(42))

	if p.Len() != 52 {
		t.Fatalf("shuffle changed pile size: %d", p.Len())
	}
	seen := make(map[Card]bool)
	for {
		card, ok := p.DrawTop()
		if !ok {
			break
		}
		seen[card] = true
	}
	if len(seen) != 52 {
		t.Errorf("shuffle lost cards: %d unique", len(seen))
	}
}

func TestRecycleIntoKeepsTop(t *testing.T) {
	t.Parallel()
	discard := &Pile{}
	draw := &Pile{}
	top := NewCard(Spades, Queen)

	discard.PushTop(NewCard(Hearts, Two))
	discard.PushTop(NewCard(Clubs, Nine))
	discard.PushTop(NewCard(Diamonds, Jack))
	discard.PushTop(top)

	discard.RecycleInto(draw, randutil.New(7))

	if discard.Len() != 1 {
		t.Errorf("discard has %d cards after recycle, want 1", discard.Len())
	}
	if got, _ := discard.PeekTop(); got != top {
		t.Errorf("recycle moved the top: %v, want %v", got, top)
	}
	if draw.Len() != 3 {
		t.Errorf("draw pile has %d cards, want 3", draw.Len())
	}
}

func TestRecycleIntoEmpty(t *testing.T) {
	t.Parallel()
	discard := &Pile{}
	draw := &Pile{}
	discard.RecycleInto(draw, randutil.New(1))
	if draw.Len() != 0 || discard.Len() != 0 {
		t.Error("recycling an empty pile should be a no-op")
	}
}
