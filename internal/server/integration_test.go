package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/maoserver/internal/game"
)

func send(t *testing.T, conn *websocket.Conn, msgType MessageType, data interface{}) {
	t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil discards messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType MessageType) *Message {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == msgType {
			return &msg
		}
	}
}

func TestServerGameFlow(t *testing.T) {
	logger := testLogger()
	registry := game.NewRegistry(logger, quartz.NewReal(), game.WithSeed(42))
	gs := NewGameService(registry, logger)
	session := gs.CreateGame(game.Config{Name: "main"})

	srv := NewServer("127.0.0.1:0", gs, logger)
	go srv.run()
	t.Cleanup(func() { _ = srv.Stop() })

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		return conn
	}
	alice := dial()
	defer func() { _ = alice.Close() }()
	bob := dial()
	defer func() { _ = bob.Close() }()

	// join both players
	send(t, alice, MessageTypeJoin, JoinData{PlayerName: "alice", GameID: session.ID()})
	readUntil(t, alice, MessageTypeJoinSuccess)
	send(t, bob, MessageTypeJoin, JoinData{PlayerName: "bob", GameID: session.ID()})
	readUntil(t, bob, MessageTypeJoinSuccess)

	// the game list is visible over the wire
	send(t, alice, MessageTypeListGames, struct{}{})
	listMsg := readUntil(t, alice, MessageTypeGameList)
	var list GameListData
	require.NoError(t, json.Unmarshal(listMsg.Data, &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, session.ID(), list.Games[0].ID)

	// both ready: the game starts and alice goes first
	send(t, alice, MessageTypeReady, struct{}{})
	send(t, bob, MessageTypeReady, struct{}{})
	readUntil(t, alice, MessageType("game_started"))

	turnMsg := readUntil(t, bob, MessageType("player_turn"))
	var turn struct {
		Player string `json:"player_name"`
	}
	require.NoError(t, json.Unmarshal(turnMsg.Data, &turn))
	assert.Equal(t, "alice", turn.Player)

	// acting out of turn is rejected with the engine's error code
	send(t, bob, MessageTypeDrawCard, struct{}{})
	errMsg := readUntil(t, bob, MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(errMsg.Data, &errData))
	assert.Equal(t, "NOT_YOUR_TURN", errData.Code)

	// alice draws and the turn passes to bob
	send(t, alice, MessageTypeDrawCard, struct{}{})
	readUntil(t, alice, MessageType("card_drawn"))
	turnMsg = readUntil(t, alice, MessageType("player_turn"))
	require.NoError(t, json.Unmarshal(turnMsg.Data, &turn))
	assert.Equal(t, "bob", turn.Player)
}

func TestServerRejectsUnboundCommands(t *testing.T) {
	logger := testLogger()
	registry := game.NewRegistry(logger, quartz.NewReal())
	gs := NewGameService(registry, logger)

	srv := NewServer("127.0.0.1:0", gs, logger)
	go srv.run()
	t.Cleanup(func() { _ = srv.Stop() })

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// commands before joining a game
	send(t, conn, MessageTypeDrawCard, struct{}{})
	errMsg := readUntil(t, conn, MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(errMsg.Data, &errData))
	assert.Equal(t, "GAME_NOT_STARTED", errData.Code)

	// joining a game that does not exist
	send(t, conn, MessageTypeJoin, JoinData{PlayerName: "alice", GameID: "nope"})
	failMsg := readUntil(t, conn, MessageTypeJoinFailed)
	var fail JoinFailedData
	require.NoError(t, json.Unmarshal(failMsg.Data, &fail))
	assert.Equal(t, "GAME_NOT_FOUND", fail.Code)

	// unknown message types are reported, not dropped
	send(t, conn, MessageType("teleport"), struct{}{})
	errMsg = readUntil(t, conn, MessageTypeError)
	require.NoError(t, json.Unmarshal(errMsg.Data, &errData))
	assert.Equal(t, "UNKNOWN_COMMAND", errData.Code)
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	registry := game.NewRegistry(testLogger(), quartz.NewReal())
	gs := NewGameService(registry, testLogger())
	srv := NewServer("127.0.0.1:0", gs, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Result().StatusCode)
	}
}

func TestServerCreateGameOverWire(t *testing.T) {
	logger := testLogger()
	registry := game.NewRegistry(logger, quartz.NewReal())
	gs := NewGameService(registry, logger)

	srv := NewServer("127.0.0.1:0", gs, logger)
	go srv.run()
	t.Cleanup(func() { _ = srv.Stop() })

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	send(t, conn, MessageTypeCreateGame, CreateGameData{Name: "pickup", TurnTimeoutSeconds: 15})
	createdMsg := readUntil(t, conn, MessageTypeGameCreated)
	var created GameCreatedData
	require.NoError(t, json.Unmarshal(createdMsg.Data, &created))

	session, ok := registry.Get(created.GameID)
	require.True(t, ok)
	assert.Equal(t, "pickup", session.Name())
	assert.Equal(t, 15*time.Second, session.TurnTimeout())

	// the created game accepts joins
	send(t, conn, MessageTypeJoin, JoinData{PlayerName: "alice", GameID: created.GameID})
	readUntil(t, conn, MessageTypeJoinSuccess)
	assert.Equal(t, 1, session.PlayerCount())
}
