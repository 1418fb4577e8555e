package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/maoserver/internal/client"
	"github.com/lox/maoserver/internal/deck"
	"github.com/lox/maoserver/internal/game"
	"github.com/lox/maoserver/internal/server"
)

// serverMsg delivers one inbound protocol message to the model
type serverMsg struct {
	msg *server.Message
}

// disconnectedMsg signals the connection dropped
type disconnectedMsg struct{}

// Model is the Bubble Tea model for the Mao client
type Model struct {
	client     *client.Client
	logger     *log.Logger
	playerName string

	logViewport viewport.Model
	input       textinput.Model

	gameLog []string

	// mirrored session state, rebuilt from every game_state snapshot
	status        string
	topCard       *deck.Card
	hand          []deck.Card
	players       []game.PlayerState
	currentPlayer string
	direction     string
	drawPileSize  int

	challengeActive bool
	challengePhrase string

	width       int
	height      int
	initialized bool
	quitting    bool
}

// NewModel creates the client model. The client must already be
// connected; the model drives it from Init onward.
func NewModel(c *client.Client, playerName string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "ready | play <n> | draw | quit"
	ti.Focus()
	ti.CharLimit = 120
	ti.Width = 60

	return &Model{
		client:      c,
		logger:      logger.WithPrefix("tui"),
		playerName:  playerName,
		logViewport: vp,
		input:       ti,
		status:      "waiting",
		direction:   "forward",
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForServer())
}

func (m *Model) waitForServer() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Receive()
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width - 4
		m.logViewport.Height = max(5, msg.Height-12)
		m.input.Width = msg.Width - 8
		m.initialized = true
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			_ = m.client.Disconnect()
			return m, tea.Quit
		case tea.KeyEnter:
			cmd := m.handleInput(strings.TrimSpace(m.input.Value()))
			m.input.SetValue("")
			return m, cmd
		}

	case serverMsg:
		m.handleServerMessage(msg.msg)
		return m, m.waitForServer()

	case disconnectedMsg:
		m.appendLog(ErrorStyle.Render("Disconnected from server"))
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleInput parses a command line. During an active typing challenge
// everything typed is the challenge response.
func (m *Model) handleInput(line string) tea.Cmd {
	if line == "" {
		return nil
	}

	if m.challengeActive {
		m.challengeActive = false
		if err := m.client.TypingResponse(line); err != nil {
			m.appendLog(ErrorStyle.Render("send failed: " + err.Error()))
		}
		return nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		m.quitting = true
		_ = m.client.Disconnect()
		return tea.Quit
	case "ready", "r":
		m.sendOrLog(m.client.Ready())
	case "draw", "d":
		m.sendOrLog(m.client.DrawCard())
	case "play", "p":
		if len(fields) < 2 {
			m.appendLog(ErrorStyle.Render("usage: play <card number>"))
			return nil
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			m.appendLog(ErrorStyle.Render("card number must be an integer"))
			return nil
		}
		m.sendOrLog(m.client.PlayCard(idx))
	case "list":
		m.sendOrLog(m.client.ListGames())
	default:
		// bare number is shorthand for play
		if idx, err := strconv.Atoi(fields[0]); err == nil {
			m.sendOrLog(m.client.PlayCard(idx))
			return nil
		}
		m.appendLog(ErrorStyle.Render("unknown command: " + fields[0]))
	}
	return nil
}

func (m *Model) sendOrLog(err error) {
	if err != nil {
		m.appendLog(ErrorStyle.Render("send failed: " + err.Error()))
	}
}

// handleServerMessage folds one protocol message into the display state
func (m *Model) handleServerMessage(msg *server.Message) {
	m.logger.Debug("server message", "type", msg.Type)

	switch msg.Type {
	case server.MessageTypeJoinSuccess:
		var data server.JoinSuccessData
		if json.Unmarshal(msg.Data, &data) == nil {
			if data.Rejoined {
				m.appendLog(SuccessStyle.Render("Rejoined game " + data.GameID))
			} else {
				m.appendLog(SuccessStyle.Render("Joined game " + data.GameID))
				m.appendLog(InfoStyle.Render("Type 'ready' when you want to start"))
			}
		}

	case server.MessageTypeJoinFailed:
		var data server.JoinFailedData
		if json.Unmarshal(msg.Data, &data) == nil {
			m.appendLog(ErrorStyle.Render("Join failed: " + data.Reason))
		}

	case server.MessageTypeGameList:
		var data server.GameListData
		if json.Unmarshal(msg.Data, &data) == nil {
			for _, g := range data.Games {
				m.appendLog(fmt.Sprintf("game %s (%s) players=%d status=%s", g.ID, g.Name, g.Players, g.Status))
			}
		}

	case server.MessageTypeError:
		var data server.ErrorData
		if json.Unmarshal(msg.Data, &data) == nil {
			m.appendLog(ErrorStyle.Render(fmt.Sprintf("[%s] %s", data.Code, data.Message)))
		}

	default:
		m.handleGameEvent(msg)
	}
	m.refreshLog()
}

func (m *Model) handleGameEvent(msg *server.Message) {
	switch game.EventType(msg.Type) {
	case game.EventTypeLobbyUpdate:
		var ev game.LobbyUpdateEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.appendLog(InfoStyle.Render(fmt.Sprintf("Lobby: %d/%d ready", ev.PlayersReady, ev.TotalPlayers)))
		}

	case game.EventTypeGameStarted:
		var ev game.GameStartedEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.appendLog(SuccessStyle.Render("Game started! Starting card: ") + renderCard(ev.StartingCard))
			m.appendLog(TurnStyle.Render(ev.FirstPlayer + " goes first"))
		}

	case game.EventTypeGameState:
		var ev game.GameStateEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.status = ev.Status
			m.topCard = ev.TopCard
			m.players = ev.Players
			m.currentPlayer = ev.CurrentPlayer
			m.direction = ev.Direction
			m.drawPileSize = ev.DrawPileSize
		}

	case game.EventTypeYourHand:
		var ev game.YourHandEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.hand = ev.Cards
		}

	case game.EventTypePlayerTurn:
		var ev game.PlayerTurnEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			if ev.Player == m.playerName {
				m.appendLog(TurnStyle.Render(fmt.Sprintf("Your turn! (%.0fs)", ev.TimeLimit)))
			} else {
				m.appendLog(fmt.Sprintf("%s's turn", ev.Player))
			}
		}

	case game.EventTypeCardPlayed:
		var ev game.CardPlayedEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			line := fmt.Sprintf("%s played ", ev.Player) + renderCard(ev.Card)
			if ev.Effect != "" {
				line += InfoStyle.Render(" (" + ev.Effect + ")")
			}
			m.appendLog(line)
		}

	case game.EventTypeCardDrawn:
		var ev game.CardDrawnEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.appendLog("You drew " + renderCard(ev.Card))
		}

	case game.EventTypeTurnTimeout:
		var ev game.TurnTimeoutEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.appendLog(InfoStyle.Render(ev.Player + " timed out, card drawn automatically"))
		}

	case game.EventTypeChallenge:
		var ev game.ChallengeEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.challengeActive = true
			m.challengePhrase = ev.Phrase
			m.appendLog(ChallengeStyle.Render(fmt.Sprintf("TYPE %q WITHIN %.0f SECONDS!", ev.Phrase, ev.TimeLimit)))
		}

	case game.EventTypeChallengeResult:
		var ev game.ChallengeResultEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.challengeActive = false
			if ev.Success {
				m.appendLog(SuccessStyle.Render(fmt.Sprintf("Challenge passed in %.1fs", ev.TimeTaken)))
			} else {
				m.appendLog(ErrorStyle.Render("Challenge failed: " + ev.Reason))
			}
		}

	case game.EventTypePlayerForfeited:
		var ev game.PlayerForfeitedEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.appendLog(ErrorStyle.Render(ev.Player + " forfeited (" + ev.Reason + ")"))
		}

	case game.EventTypePlayerLeftLobby:
		var ev game.PlayerLeftLobbyEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			m.appendLog(InfoStyle.Render(ev.Player + " left the lobby"))
		}

	case game.EventTypeGameWon:
		var ev game.GameWonEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			if ev.Winner == m.playerName {
				m.appendLog(SuccessStyle.Render("You won!"))
			} else {
				m.appendLog(TurnStyle.Render(ev.Winner + " won the game"))
			}
		}
	}
}

func (m *Model) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
	if len(m.gameLog) > 200 {
		m.gameLog = m.gameLog[len(m.gameLog)-200:]
	}
}

func (m *Model) refreshLog() {
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.initialized {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" Mao | %s | %s ", m.playerName, m.status)
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n\n")

	if m.topCard != nil {
		b.WriteString("Top card: " + renderCard(*m.topCard))
		b.WriteString(InfoStyle.Render(fmt.Sprintf("   draw pile: %d   direction: %s", m.drawPileSize, m.direction)))
		b.WriteString("\n")
	}
	if len(m.players) > 0 {
		b.WriteString(m.renderPlayers())
		b.WriteString("\n")
	}

	b.WriteString(GameLogStyle.Render(m.logViewport.View()))
	b.WriteString("\n\n")

	if len(m.hand) > 0 {
		b.WriteString("Your hand: " + m.renderHand())
		b.WriteString("\n")
	}

	if m.challengeActive {
		b.WriteString(ChallengeStyle.Render(fmt.Sprintf(" TYPE: %s ", m.challengePhrase)))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderPlayers() string {
	parts := make([]string, 0, len(m.players))
	for _, p := range m.players {
		entry := fmt.Sprintf("%s(%d)", p.Name, p.HandSize)
		if !p.Connected {
			entry += "⚠"
		}
		if p.CurrentTurn {
			entry = TurnStyle.Render("▶" + entry)
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderHand() string {
	parts := make([]string, 0, len(m.hand))
	for i, card := range m.hand {
		parts = append(parts, fmt.Sprintf("%d:%s", i+1, renderCard(card)))
	}
	return strings.Join(parts, " ")
}

func renderCard(card deck.Card) string {
	return CardStyle(card.IsRed()).Render(card.String())
}
