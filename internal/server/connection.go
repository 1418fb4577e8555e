package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/maoserver/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client. One
// connection binds at most one player to at most one session.
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerName  string
	gameID      string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message to the client. Never blocks; a client
// that cannot keep up gets disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// channel closed during shutdown
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerName = playerName
}

// GetPlayer returns the associated player name
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// SetGame associates this connection with a session
func (c *Connection) SetGame(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
}

// GetGame returns the associated session ID
func (c *Connection) GetGame() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage maps inbound messages to engine commands
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeJoin:
		var data JoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("MISSING_FIELD", "failed to parse join data")
			return
		}
		c.handleJoin(data)

	case MessageTypeReady:
		gameID, playerName, ok := c.requireSeat()
		if !ok {
			return
		}
		c.sendGameError(c.gameService.Ready(gameID, playerName))

	case MessageTypeDrawCard:
		gameID, playerName, ok := c.requireSeat()
		if !ok {
			return
		}
		c.sendGameError(c.gameService.DrawCard(gameID, playerName))

	case MessageTypePlayCard:
		var data PlayCardData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("MISSING_FIELD", "failed to parse play data")
			return
		}
		gameID, playerName, ok := c.requireSeat()
		if !ok {
			return
		}
		if data.CardIndex == 0 {
			c.sendError("MISSING_FIELD", "card_index is required")
			return
		}
		c.sendGameError(c.gameService.PlayCard(gameID, playerName, data.CardIndex))

	case MessageTypeTypingResponse:
		var data TypingResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("MISSING_FIELD", "failed to parse typing response")
			return
		}
		gameID, playerName, ok := c.requireSeat()
		if !ok {
			return
		}
		c.gameService.TypingResponse(gameID, playerName, data.Text)

	case MessageTypeListGames:
		response, _ := NewMessage(MessageTypeGameList, GameListData{Games: c.gameService.ListGames()})
		_ = c.SendMessage(response)

	case MessageTypeCreateGame:
		var data CreateGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("MISSING_FIELD", "failed to parse create game data")
			return
		}
		c.handleCreateGame(data)

	default:
		c.sendError("UNKNOWN_COMMAND", "unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleJoin(data JoinData) {
	if data.PlayerName == "" {
		c.sendError("MISSING_FIELD", "player_name is required")
		return
	}
	if data.GameID == "" {
		c.sendError("MISSING_FIELD", "game_id is required")
		return
	}
	if c.GetGame() != "" {
		c.sendJoinFailed("already joined a game", "")
		return
	}

	rejoined, err := c.gameService.Join(c, data.GameID, data.PlayerName, data.Password)
	if err != nil {
		var gameErr *game.Error
		if errors.As(err, &gameErr) {
			c.sendJoinFailed(gameErr.Message, gameErr.Code)
		} else {
			c.sendJoinFailed(err.Error(), "")
		}
		return
	}

	c.logger.Info("player joined game", "player", data.PlayerName, "game", data.GameID, "rejoined", rejoined)
	response, _ := NewMessage(MessageTypeJoinSuccess, JoinSuccessData{
		GameID:     data.GameID,
		PlayerName: data.PlayerName,
		Rejoined:   rejoined,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleCreateGame(data CreateGameData) {
	cfg := game.Config{
		Name:        data.Name,
		Password:    data.Password,
		TurnTimeout: time.Duration(data.TurnTimeoutSeconds) * time.Second,
	}
	session := c.gameService.CreateGame(cfg)

	response, _ := NewMessage(MessageTypeGameCreated, GameCreatedData{GameID: session.ID()})
	_ = c.SendMessage(response)
}

// requireSeat resolves the connection's binding, reporting an error to
// the client when there is none.
func (c *Connection) requireSeat() (gameID, playerName string, ok bool) {
	gameID = c.GetGame()
	playerName = c.GetPlayer()
	if gameID == "" || playerName == "" {
		c.sendError("GAME_NOT_STARTED", "join a game first")
		return "", "", false
	}
	return gameID, playerName, true
}

// sendGameError reports an engine error to the client; nil is a no-op.
func (c *Connection) sendGameError(err error) {
	if err == nil {
		return
	}
	var gameErr *game.Error
	if errors.As(err, &gameErr) {
		c.sendError(gameErr.Code, gameErr.Message)
		return
	}
	c.sendError("UNKNOWN_COMMAND", err.Error())
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) sendJoinFailed(reason, code string) {
	msg, err := NewMessage(MessageTypeJoinFailed, JoinFailedData{Reason: reason, Code: code})
	if err != nil {
		return
	}
	_ = c.SendMessage(msg)
}
