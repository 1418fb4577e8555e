package game

import "github.com/lox/maoserver/internal/deck"

// Player represents a seated player. Owned exclusively by its Session;
// all access goes through the session lock.
type Player struct {
	Name        string
	Hand        []deck.Card
	Connected   bool
	Ready       bool
	MissedTurns int
}

// NewPlayer creates a player with an empty hand, marked connected.
func NewPlayer(name string) *Player {
	return &Player{Name: name, Connected: true}
}

// GiveCard appends a card to the hand. Hand order is the 1-based index
// shown to the user and is never silently reordered.
func (p *Player) GiveCard(card deck.Card) {
	p.Hand = append(p.Hand, card)
}

// CardAt returns the card at the 1-based hand index without removing
// it. The second return is false if the index is out of range.
func (p *Player) CardAt(index int) (deck.Card, bool) {
	if index < 1 || index > len(p.Hand) {
		return deck.Card{}, false
	}
	return p.Hand[index-1], true
}

// PlayCard removes and returns the card at the 1-based hand index.
func (p *Player) PlayCard(index int) (deck.Card, bool) {
	card, ok := p.CardAt(index)
	if !ok {
		return deck.Card{}, false
	}
	p.Hand = append(p.Hand[:index-1], p.Hand[index:]...)
	return card, true
}

// HandSize returns the number of cards held.
func (p *Player) HandSize() int {
	return len(p.Hand)
}
