package server

import (
	"encoding/json"
	"time"

	"github.com/lox/maoserver/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// eventMessage wraps an engine event as a wire message. Event structs
// carry their own JSON tags, so the event type doubles as the message
// type.
func eventMessage(ev game.Event) (*Message, error) {
	return NewMessage(MessageType(ev.EventType()), ev)
}

// Client → Server Messages

type JoinData struct {
	PlayerName string `json:"player_name"`
	GameID     string `json:"game_id"`
	Password   string `json:"password,omitempty"`
}

type PlayCardData struct {
	CardIndex int `json:"card_index"`
}

type TypingResponseData struct {
	Text string `json:"text"`
}

type CreateGameData struct {
	Name               string `json:"name,omitempty"`
	Password           string `json:"password,omitempty"`
	TurnTimeoutSeconds int    `json:"turn_timeout_seconds,omitempty"`
}

// Server → Client Messages

type JoinSuccessData struct {
	GameID     string `json:"game_id"`
	PlayerName string `json:"player_name"`
	Rejoined   bool   `json:"rejoined,omitempty"`
}

type JoinFailedData struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

type GameListData struct {
	Games []game.Summary `json:"games"`
}

type GameCreatedData struct {
	GameID string `json:"game_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
