package game

import (
	"time"

	"github.com/lox/maoserver/internal/deck"
)

// EventType represents a game event type with type safety
type EventType string

// Wire names for every event the engine emits
const (
	EventTypeLobbyUpdate     EventType = "lobby_update"
	EventTypeGameStarted     EventType = "game_started"
	EventTypeGameState       EventType = "game_state"
	EventTypeYourHand        EventType = "your_hand"
	EventTypePlayerTurn      EventType = "player_turn"
	EventTypeCardPlayed      EventType = "card_played"
	EventTypeCardDrawn       EventType = "card_drawn"
	EventTypeTurnTimeout     EventType = "turn_timeout"
	EventTypeChallenge       EventType = "typing_rule_challenge"
	EventTypeChallengeResult EventType = "typing_rule_result"
	EventTypePlayerForfeited EventType = "player_forfeited"
	EventTypePlayerLeftLobby EventType = "player_left_lobby"
	EventTypeGameWon         EventType = "game_won"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is a self-contained notification emitted by a session. Events
// are handed to the session's sink in emission order, exactly once per
// mutation. Recipient names the single player the event is addressed
// to, or "" for a broadcast to the whole session.
type Event interface {
	EventType() EventType
	Recipient() string
}

// broadcast is embedded by events addressed to every player
type broadcast struct{}

func (broadcast) Recipient() string { return "" }

// LobbyPlayer is one entry in a lobby snapshot
type LobbyPlayer struct {
	Name      string `json:"name"`
	Connected bool   `json:"is_connected"`
	Ready     bool   `json:"is_ready"`
}

// LobbyUpdateEvent is a full lobby snapshot, emitted on join, ready and
// lobby leave while the session is Waiting.
type LobbyUpdateEvent struct {
	broadcast
	GameID       string        `json:"game_id"`
	Players      []LobbyPlayer `json:"players"`
	PlayersReady int           `json:"players_ready"`
	TotalPlayers int           `json:"total_players"`
}

func (LobbyUpdateEvent) EventType() EventType { return EventTypeLobbyUpdate }

// GameStartedEvent announces the transition to Playing
type GameStartedEvent struct {
	broadcast
	StartingCard deck.Card `json:"starting_card"`
	FirstPlayer  string    `json:"first_player"`
}

func (GameStartedEvent) EventType() EventType { return EventTypeGameStarted }

// PlayerState is one seat in a game snapshot
type PlayerState struct {
	Name        string `json:"name"`
	HandSize    int    `json:"hand_size"`
	Connected   bool   `json:"is_connected"`
	CurrentTurn bool   `json:"is_current_turn"`
}

// GameStateEvent is a full game snapshot, safe to redeliver and
// idempotent to re-render. Emitted after every mutation.
type GameStateEvent struct {
	broadcast
	GameID          string        `json:"game_id"`
	Status          string        `json:"game_status"`
	TopCard         *deck.Card    `json:"top_card"`
	DrawPileSize    int           `json:"draw_pile_size"`
	DiscardPileSize int           `json:"discard_pile_size"`
	Direction       string        `json:"turn_direction"`
	CurrentPlayer   string        `json:"current_player,omitempty"`
	Players         []PlayerState `json:"players"`
}

func (GameStateEvent) EventType() EventType { return EventTypeGameState }

// YourHandEvent carries a player's full hand, private to that player
type YourHandEvent struct {
	Player string      `json:"-"`
	Cards  []deck.Card `json:"cards"`
}

func (YourHandEvent) EventType() EventType { return EventTypeYourHand }
func (e YourHandEvent) Recipient() string  { return e.Player }

// PlayerTurnEvent announces whose turn is starting and the time limit
type PlayerTurnEvent struct {
	broadcast
	Player    string  `json:"player_name"`
	TimeLimit float64 `json:"time_limit"`
}

func (PlayerTurnEvent) EventType() EventType { return EventTypePlayerTurn }

// CardPlayedEvent announces a legal play. Effect is the effect tag
// ("skip", "reverse", "typing_rule") or empty for a plain card.
type CardPlayedEvent struct {
	broadcast
	Player string    `json:"player_name"`
	Card   deck.Card `json:"card"`
	Effect string    `json:"effect,omitempty"`
}

func (CardPlayedEvent) EventType() EventType { return EventTypeCardPlayed }

// CardDrawnEvent tells a player which card entered their hand, private
// to that player.
type CardDrawnEvent struct {
	Player string    `json:"-"`
	Card   deck.Card `json:"card"`
}

func (CardDrawnEvent) EventType() EventType { return EventTypeCardDrawn }
func (e CardDrawnEvent) Recipient() string  { return e.Player }

// TurnTimeoutEvent announces an expired turn timer and the auto-draw
// performed on the player's behalf.
type TurnTimeoutEvent struct {
	broadcast
	Player string `json:"player_name"`
	Action string `json:"action"`
}

func (TurnTimeoutEvent) EventType() EventType { return EventTypeTurnTimeout }

// ChallengeEvent delivers a typing challenge to its owner
type ChallengeEvent struct {
	Player    string  `json:"player_name"`
	Phrase    string  `json:"phrase"`
	TimeLimit float64 `json:"time_limit"`
}

func (ChallengeEvent) EventType() EventType { return EventTypeChallenge }
func (e ChallengeEvent) Recipient() string  { return e.Player }

// ChallengeResultEvent reports how a typing challenge resolved. On
// success TimeTaken holds the response latency in seconds; on failure
// Reason is "timeout" or "incorrect_phrase".
type ChallengeResultEvent struct {
	Player    string  `json:"player_name"`
	Success   bool    `json:"success"`
	TimeTaken float64 `json:"time_taken,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

func (ChallengeResultEvent) EventType() EventType { return EventTypeChallengeResult }
func (e ChallengeResultEvent) Recipient() string  { return e.Player }

// PlayerForfeitedEvent announces a forced removal after sustained
// disconnection.
type PlayerForfeitedEvent struct {
	broadcast
	Player string `json:"player_name"`
	Reason string `json:"reason"`
}

func (PlayerForfeitedEvent) EventType() EventType { return EventTypePlayerForfeited }

// PlayerLeftLobbyEvent announces a player leaving before the game
// started.
type PlayerLeftLobbyEvent struct {
	broadcast
	Player string `json:"player_name"`
}

func (PlayerLeftLobbyEvent) EventType() EventType { return EventTypePlayerLeftLobby }

// GameWonEvent announces the winner; the session is Finished
type GameWonEvent struct {
	broadcast
	Winner string `json:"winner"`
}

func (GameWonEvent) EventType() EventType { return EventTypeGameWon }

// seconds converts a duration to the float seconds used on the wire
func seconds(d time.Duration) float64 {
	return d.Seconds()
}
