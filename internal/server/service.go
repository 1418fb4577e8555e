package server

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/maoserver/internal/game"
)

// GameService binds the session registry to the WebSocket layer. Each
// tracked session gets a hub routing its event stream to the
// connections seated in it.
type GameService struct {
	logger   *log.Logger
	registry *game.Registry

	mu   sync.RWMutex
	hubs map[string]*hub
}

// NewGameService creates a game service over the given registry.
func NewGameService(registry *game.Registry, logger *log.Logger) *GameService {
	return &GameService{
		logger:   logger.WithPrefix("game_service"),
		registry: registry,
		hubs:     make(map[string]*hub),
	}
}

// CreateGame creates a session and wires its event stream to this
// service.
func (gs *GameService) CreateGame(cfg game.Config) *game.Session {
	session := gs.registry.Create(cfg)

	h := newHub()
	gs.mu.Lock()
	gs.hubs[session.ID()] = h
	gs.mu.Unlock()

	session.SetSink(func(ev game.Event) {
		msg, err := eventMessage(ev)
		if err != nil {
			gs.logger.Error("failed to encode event", "event", ev.EventType(), "error", err)
			return
		}
		h.deliver(ev.Recipient(), msg)
	})
	return session
}

// ListGames returns a snapshot of available sessions.
func (gs *GameService) ListGames() []game.Summary {
	return gs.registry.List()
}

// Join seats a connection's player in a session, or reattaches them if
// the game already started and their seat still exists.
func (gs *GameService) Join(conn *Connection, gameID, playerName, password string) (rejoined bool, err error) {
	session, ok := gs.registry.Get(gameID)
	if !ok {
		return false, game.ErrGameNotFound
	}

	h := gs.hubFor(gameID)
	if h == nil {
		// session created outside this service; should not happen
		gs.logger.Error("no hub for session", "game", gameID)
		return false, game.ErrGameNotFound
	}

	// bind before joining so the engine's join events reach the joiner
	prev := h.add(playerName, conn)

	err = session.Join(playerName, password)
	if errors.Is(err, game.ErrGameAlreadyStarted) {
		// game in progress; a dropped seat may be reclaimed
		err = session.Rejoin(playerName, password)
		rejoined = err == nil
	}
	if err != nil {
		// a rejected join must not evict whoever held the name
		if prev != nil && prev != conn {
			h.add(playerName, prev)
		} else {
			h.remove(playerName, conn)
		}
		return false, err
	}

	conn.SetPlayer(playerName)
	conn.SetGame(gameID)
	return rejoined, nil
}

// Ready marks the connection's player ready.
func (gs *GameService) Ready(gameID, playerName string) error {
	session, ok := gs.registry.Get(gameID)
	if !ok {
		return game.ErrGameNotFound
	}
	return session.Ready(playerName)
}

// DrawCard plays the draw command for the connection's player.
func (gs *GameService) DrawCard(gameID, playerName string) error {
	session, ok := gs.registry.Get(gameID)
	if !ok {
		return game.ErrGameNotFound
	}
	return session.Draw(playerName)
}

// PlayCard plays the card at the given 1-based hand index.
func (gs *GameService) PlayCard(gameID, playerName string, cardIndex int) error {
	session, ok := gs.registry.Get(gameID)
	if !ok {
		return game.ErrGameNotFound
	}
	return session.Play(playerName, cardIndex)
}

// TypingResponse submits a typing-challenge answer. Stale or foreign
// responses are dropped by the engine.
func (gs *GameService) TypingResponse(gameID, playerName, text string) {
	session, ok := gs.registry.Get(gameID)
	if !ok {
		return
	}
	session.Respond(playerName, text)
}

// Disconnect detaches a dropped connection from its session: a lobby
// member is removed outright, a seated player is marked disconnected
// and left to the engine's forfeiture bookkeeping.
func (gs *GameService) Disconnect(conn *Connection) {
	gameID := conn.GetGame()
	playerName := conn.GetPlayer()
	if gameID == "" || playerName == "" {
		return
	}

	if h := gs.hubFor(gameID); h != nil {
		h.remove(playerName, conn)
	}

	session, ok := gs.registry.Get(gameID)
	if !ok {
		return
	}
	gs.logger.Info("player disconnected", "game", gameID, "player", playerName)
	session.Leave(playerName)
}

func (gs *GameService) hubFor(gameID string) *hub {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.hubs[gameID]
}

// hub fans a session's event stream out to its connections. Targeted
// events go only to the named player's connection.
type hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func newHub() *hub {
	return &hub{conns: make(map[string]*Connection)}
}

// add binds the player's connection, returning the connection it
// displaced, if any.
func (h *hub) add(playerName string, conn *Connection) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.conns[playerName]
	h.conns[playerName] = conn
	return prev
}

// remove drops the player's connection, but only if it is still the
// one being removed; a reconnect may have replaced it already.
func (h *hub) remove(playerName string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[playerName] == conn {
		delete(h.conns, playerName)
	}
}

func (h *hub) deliver(recipient string, msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if recipient != "" {
		if conn, ok := h.conns[recipient]; ok {
			_ = conn.SendMessage(msg)
		}
		return
	}
	for _, conn := range h.conns {
		_ = conn.SendMessage(msg)
	}
}
