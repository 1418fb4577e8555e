package server

// Note: engine events (game_state, card_played, etc.) are defined in
// internal/game/events.go and are relayed as WebSocket messages under
// their own type names.

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants for the client-server protocol
const (
	// Client to server messages
	MessageTypeJoin           MessageType = "join"
	MessageTypeReady          MessageType = "ready"
	MessageTypeDrawCard       MessageType = "draw_card"
	MessageTypePlayCard       MessageType = "play_card"
	MessageTypeTypingResponse MessageType = "typing_rule_response"
	MessageTypeListGames      MessageType = "list_games"
	MessageTypeCreateGame     MessageType = "create_game"

	// Server to client messages
	MessageTypeJoinSuccess MessageType = "join_success"
	MessageTypeJoinFailed  MessageType = "join_failed"
	MessageTypeGameList    MessageType = "game_list"
	MessageTypeGameCreated MessageType = "game_created"
	MessageTypeError       MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
