package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/maoserver/internal/server" // reuse message types
)

// Client is the WebSocket client used by the terminal UI. Inbound
// messages are surfaced on Receive; command helpers wrap the outbound
// protocol.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 256),
		receive:   make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		close(c.send)
		close(c.receive)

		c.logger.Info("disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Receive returns the inbound message stream. The channel closes when
// the connection drops.
func (c *Client) Receive() <-chan *server.Message {
	return c.receive
}

// Join asks to seat the player in a game
func (c *Client) Join(gameID, playerName, password string) error {
	return c.sendCommand(server.MessageTypeJoin, server.JoinData{
		GameID:     gameID,
		PlayerName: playerName,
		Password:   password,
	})
}

// Ready marks the player ready to start
func (c *Client) Ready() error {
	return c.sendCommand(server.MessageTypeReady, struct{}{})
}

// DrawCard draws one card and passes the turn
func (c *Client) DrawCard() error {
	return c.sendCommand(server.MessageTypeDrawCard, struct{}{})
}

// PlayCard plays the card at the 1-based hand index
func (c *Client) PlayCard(index int) error {
	return c.sendCommand(server.MessageTypePlayCard, server.PlayCardData{CardIndex: index})
}

// TypingResponse answers an active typing challenge
func (c *Client) TypingResponse(text string) error {
	return c.sendCommand(server.MessageTypeTypingResponse, server.TypingResponseData{Text: text})
}

// ListGames requests the game list
func (c *Client) ListGames() error {
	return c.sendCommand(server.MessageTypeListGames, struct{}{})
}

func (c *Client) sendCommand(messageType server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("send timeout")
	}
}

func (c *Client) readPump() {
	defer func() { _ = c.Disconnect() }()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
				_ = c.Disconnect()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
