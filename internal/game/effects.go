package game

import (
	"time"

	"github.com/lox/maoserver/internal/deck"
)

// Effect is a special-card behavior triggered by a legal play. The set
// is closed: the engine ships exactly the three effects below, keyed on
// rank by effectForRank. New variants slot in by extending the
// dispatcher in Session.applyEffect.
type Effect interface {
	// Name is the effect tag sent in card_played events
	Name() string
}

// SkipEffect causes the next scheduled turn advance to skip Seats extra
// seats.
type SkipEffect struct {
	Seats int
}

func (SkipEffect) Name() string { return "skip" }

// ReverseEffect toggles the direction of play. AlsoSkip additionally
// arms the pending-skip flag, so both apply from the single play.
type ReverseEffect struct {
	AlsoSkip bool
}

func (ReverseEffect) Name() string { return "reverse" }

// ChallengeEffect arms a timed typing challenge owned by the player who
// played the card. The turn does not advance until the challenge
// resolves; failure costs PenaltyCards.
type ChallengeEffect struct {
	Phrase       string
	TimeLimit    time.Duration
	PenaltyCards int
}

func (ChallengeEffect) Name() string { return "typing_rule" }

// effectForRank maps a played rank to its effect, or nil for plain
// cards.
func effectForRank(rank deck.Rank, cfg Config) Effect {
	switch rank {
	case deck.Eight:
		return SkipEffect{Seats: 1}
	case deck.Ace:
		return ReverseEffect{AlsoSkip: true}
	case deck.Seven:
		return ChallengeEffect{
			Phrase:       cfg.ChallengePhrase,
			TimeLimit:    cfg.ChallengeTimeout,
			PenaltyCards: 1,
		}
	default:
		return nil
	}
}
