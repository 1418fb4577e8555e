package game

import (
	rand "math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/maoserver/internal/deck"
)

// Status is a session lifecycle phase. Transitions are monotonic:
// Waiting -> Playing -> Finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Config holds per-session rules
type Config struct {
	Name             string
	Password         string
	TurnTimeout      time.Duration
	ForfeitThreshold int
	ChallengePhrase  string
	ChallengeTimeout time.Duration
	HandSize         int
	MaxPlayers       int
}

// DefaultConfig returns the baseline Mao rules: 20 second turns, the
// standard typing phrase with a 7 second budget, 7-card deals, and
// forfeiture after two consecutive missed turn starts.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:      20 * time.Second,
		ForfeitThreshold: 2,
		ChallengePhrase:  "have a nice day",
		ChallengeTimeout: 7 * time.Second,
		HandSize:         7,
		MaxPlayers:       7,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = def.TurnTimeout
	}
	if c.ForfeitThreshold <= 0 {
		c.ForfeitThreshold = def.ForfeitThreshold
	}
	if c.ChallengePhrase == "" {
		c.ChallengePhrase = def.ChallengePhrase
	}
	if c.ChallengeTimeout <= 0 {
		c.ChallengeTimeout = def.ChallengeTimeout
	}
	if c.HandSize <= 0 {
		c.HandSize = def.HandSize
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	return c
}

// ErrGameFull rejects joins once every dealable seat is taken
var ErrGameFull = &Error{Code: "GAME_FULL", Message: "the game is full"}

// Sink receives session events in emission order. The sink is invoked
// while the session lock is held and must not call back into the
// session.
type Sink func(Event)

// challengeState tracks the single outstanding typing challenge
type challengeState struct {
	owner     string
	phrase    string
	limit     time.Duration
	penalty   int
	startedAt time.Time
}

// Session is the engine for one game. All commands and timer firings
// serialize through one mutex, so effects are applied one at a time in
// arrival order and invariants hold at every observation point.
type Session struct {
	id     string
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	mu    sync.Mutex
	sink  Sink
	queue []Event

	status   Status
	players  []*Player
	turn     int
	reversed bool
	skipNext bool
	winner   string

	drawPile    *deck.Pile
	discardPile *deck.Pile

	// single timer slot: turn timer XOR challenge timer XOR none.
	// timerEpoch invalidates callbacks from cancelled timers.
	timer      *quartz.Timer
	timerEpoch uint64

	challenge *challengeState
}

// NewSession creates a Waiting session with a freshly shuffled draw
// pile. The clock is injected so tests can drive timers explicitly.
func NewSession(id string, cfg Config, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Session {
	s := &Session{
		id:          id,
		cfg:         cfg.withDefaults(),
		logger:      logger.WithPrefix("session").With("game", id),
		clock:       clock,
		rng:         rng,
		status:      StatusWaiting,
		drawPile:    deck.NewStandardPile(),
		discardPile: &deck.Pile{},
	}
	s.drawPile.Shuffle(rng)
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Name returns the operator-assigned session name, possibly empty
func (s *Session) Name() string {
	return s.cfg.Name
}

// Status returns the current lifecycle phase
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// HasPassword reports whether joins require a password
func (s *Session) HasPassword() bool {
	return s.cfg.Password != ""
}

// PlayerCount returns the number of seated players
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// TurnTimeout returns the configured turn timer duration
func (s *Session) TurnTimeout() time.Duration {
	return s.cfg.TurnTimeout
}

// SetSink installs the outbound event sink. Events emitted with no sink
// installed are dropped.
func (s *Session) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Join seats a new player in a Waiting session.
func (s *Session) Join(name, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	if s.status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	if s.cfg.Password != "" && password != s.cfg.Password {
		return ErrInvalidPassword
	}
	for _, p := range s.players {
		if p.Name == name {
			return ErrNameTaken
		}
	}
	if len(s.players) >= s.cfg.MaxPlayers {
		return ErrGameFull
	}

	s.players = append(s.players, NewPlayer(name))
	s.logger.Info("player joined", "player", name, "players", len(s.players))
	s.emit(s.lobbyUpdate())
	return nil
}

// Rejoin reattaches a player to a session that has already started,
// resetting their missed-turn counter. A forfeited seat is gone; its
// former occupant cannot rejoin.
func (s *Session) Rejoin(name, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	if s.cfg.Password != "" && password != s.cfg.Password {
		return ErrInvalidPassword
	}
	p := s.findPlayer(name)
	if p == nil {
		return ErrGameAlreadyStarted
	}
	if p.Connected {
		return ErrNameTaken
	}

	p.Connected = true
	p.MissedTurns = 0
	s.logger.Info("player reconnected", "player", name)
	s.emit(s.gameState())
	s.emit(YourHandEvent{Player: name, Cards: slices.Clone(p.Hand)})
	return nil
}

// Leave removes a player from a Waiting lobby. Once the game has
// started seats are only vacated by forfeiture, so a leave during play
// just marks the seat disconnected.
func (s *Session) Leave(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	if s.status != StatusWaiting {
		s.setConnected(name, false)
		return
	}

	idx := -1
	for i, p := range s.players {
		if p.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	s.logger.Info("player left lobby", "player", name, "players", len(s.players))
	s.emit(PlayerLeftLobbyEvent{Player: name})
	s.emit(s.lobbyUpdate())

	// the leaver may have been the last unready seat
	s.maybeStart()
}

// Ready marks a player ready. When every seated player is ready the
// game starts: deal, flip the starting card, arm the first turn timer.
func (s *Session) Ready(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	if s.status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	p := s.findPlayer(name)
	if p == nil {
		return nil // stale reference, no-op
	}
	p.Ready = true
	s.emit(s.lobbyUpdate())
	s.maybeStart()
	return nil
}

func (s *Session) maybeStart() {
	if s.status != StatusWaiting || len(s.players) == 0 {
		return
	}
	for _, p := range s.players {
		if !p.Ready {
			return
		}
	}
	s.start()
}

func (s *Session) start() {
	s.status = StatusPlaying

	for _, p := range s.players {
		for i := 0; i < s.cfg.HandSize; i++ {
			card, ok := s.drawPile.DrawTop()
			if !ok {
				// unreachable while MaxPlayers*HandSize < 52
				s.logger.Error("draw pile exhausted during deal")
				break
			}
			p.GiveCard(card)
		}
	}

	starting, _ := s.drawPile.DrawTop()
	s.discardPile.PushTop(starting)

	s.turn = 0
	s.reversed = false
	s.skipNext = false

	s.logger.Info("game started", "players", len(s.players), "startingCard", starting.String())
	s.emit(GameStartedEvent{StartingCard: starting, FirstPlayer: s.players[0].Name})
	for _, p := range s.players {
		s.emit(YourHandEvent{Player: p.Name, Cards: slices.Clone(p.Hand)})
	}
	s.emit(s.gameState())
	s.beginTurn()
}

// Draw plays the draw command: one card into the caller's hand, then
// the turn passes. Recycles the discard pile first if the draw pile is
// empty.
func (s *Session) Draw(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	if s.status != StatusPlaying {
		return ErrGameNotStarted
	}
	p := s.currentPlayer()
	if p == nil || p.Name != name || s.challenge != nil {
		return ErrNotYourTurn
	}

	card, ok := s.draw()
	if !ok {
		return ErrDrawPileEmpty
	}
	p.GiveCard(card)
	s.emit(CardDrawnEvent{Player: name, Card: card})
	s.emit(YourHandEvent{Player: name, Cards: slices.Clone(p.Hand)})
	s.emit(s.gameState())
	s.advanceTurn()
	return nil
}

// Play plays the card at the given 1-based hand index against the
// discard top. An illegal play still mutates: the caller keeps the
// card, receives the previous matching target plus one drawn card, and
// loses the turn; ErrInvalidMove is returned alongside that mutation.
func (s *Session) Play(name string, cardIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	if s.status != StatusPlaying {
		return ErrGameNotStarted
	}
	p := s.currentPlayer()
	if p == nil || p.Name != name || s.challenge != nil {
		return ErrNotYourTurn
	}
	card, ok := p.CardAt(cardIndex)
	if !ok {
		return ErrInvalidCardIndex
	}

	top, _ := s.discardPile.PeekTop()
	if !card.Matches(top) {
		s.applyPlayPenalty(p)
		s.emit(YourHandEvent{Player: name, Cards: slices.Clone(p.Hand)})
		s.emit(s.gameState())
		s.advanceTurn()
		return ErrInvalidMove
	}

	p.PlayCard(cardIndex)
	s.discardPile.PushTop(card)

	if p.HandSize() == 0 {
		s.status = StatusFinished
		s.winner = name
		s.stopTimer()
		s.logger.Info("game won", "winner", name)
		s.emit(CardPlayedEvent{Player: name, Card: card})
		s.emit(YourHandEvent{Player: name, Cards: nil})
		s.emit(GameWonEvent{Winner: name})
		s.emit(s.gameState())
		return nil
	}

	effect := effectForRank(card.Rank, s.cfg)
	effectName := ""
	if effect != nil {
		effectName = effect.Name()
	}
	s.emit(CardPlayedEvent{Player: name, Card: card, Effect: effectName})
	s.emit(YourHandEvent{Player: name, Cards: slices.Clone(p.Hand)})
	s.applyEffect(effect, p)
	return nil
}

// applyEffect is the single dispatcher over the closed effect set
func (s *Session) applyEffect(effect Effect, owner *Player) {
	switch e := effect.(type) {
	case nil:
		s.emit(s.gameState())
		s.advanceTurn()
	case SkipEffect:
		// the shipped rules only ever skip one seat
		if e.Seats > 0 {
			s.skipNext = true
		}
		s.emit(s.gameState())
		s.advanceTurn()
	case ReverseEffect:
		s.reversed = !s.reversed
		if e.AlsoSkip {
			s.skipNext = true
		}
		s.emit(s.gameState())
		s.advanceTurn()
	case ChallengeEffect:
		s.challenge = &challengeState{
			owner:     owner.Name,
			phrase:    e.Phrase,
			limit:     e.TimeLimit,
			penalty:   e.PenaltyCards,
			startedAt: s.clock.Now(),
		}
		s.armTimer(e.TimeLimit, s.handleChallengeTimeout)
		s.emit(ChallengeEvent{Player: owner.Name, Phrase: e.Phrase, TimeLimit: seconds(e.TimeLimit)})
		s.emit(s.gameState())
	}
}

// applyPlayPenalty hands out the two-card penalty for an illegal play:
// the card beneath the discard top (the previous matching target) and
// one freshly drawn card. The discard top itself stays put.
func (s *Session) applyPlayPenalty(p *Player) {
	if beneath, ok := s.discardPile.TakeBeneathTop(); ok {
		p.GiveCard(beneath)
		s.emit(CardDrawnEvent{Player: p.Name, Card: beneath})
	}
	if card, ok := s.draw(); ok {
		p.GiveCard(card)
		s.emit(CardDrawnEvent{Player: p.Name, Card: card})
	}
}

// Respond submits a typing-challenge answer. A response from anyone but
// the challenge owner, or with no challenge outstanding, is silently
// discarded.
func (s *Session) Respond(name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()

	ch := s.challenge
	if ch == nil || ch.owner != name || s.status != StatusPlaying {
		return
	}

	elapsed := s.clock.Now().Sub(ch.startedAt)
	switch {
	case elapsed > ch.limit:
		s.resolveChallenge(false, "timeout", elapsed)
	case strings.EqualFold(strings.TrimSpace(text), ch.phrase):
		s.resolveChallenge(true, "", elapsed)
	default:
		s.resolveChallenge(false, "incorrect_phrase", elapsed)
	}
}

// resolveChallenge settles the outstanding challenge exactly once.
// Clearing s.challenge and bumping the timer epoch together under the
// lock means a late timer fire or duplicate response sees no challenge
// and no-ops.
func (s *Session) resolveChallenge(success bool, reason string, elapsed time.Duration) {
	ch := s.challenge
	s.challenge = nil
	s.stopTimer()

	owner := s.findPlayer(ch.owner)
	if owner == nil {
		s.advanceTurn()
		return
	}

	if success {
		s.logger.Debug("challenge passed", "player", ch.owner, "elapsed", elapsed)
		s.emit(ChallengeResultEvent{Player: ch.owner, Success: true, TimeTaken: seconds(elapsed)})
	} else {
		s.logger.Debug("challenge failed", "player", ch.owner, "reason", reason)
		s.emit(ChallengeResultEvent{Player: ch.owner, Success: false, Reason: reason})
		for i := 0; i < ch.penalty; i++ {
			if card, ok := s.draw(); ok {
				owner.GiveCard(card)
				s.emit(CardDrawnEvent{Player: ch.owner, Card: card})
			}
		}
		s.emit(YourHandEvent{Player: ch.owner, Cards: slices.Clone(owner.Hand)})
	}
	s.emit(s.gameState())
	s.advanceTurn()
}

// SetConnected flips a seat's connectivity flag. Set by the transport
// adapter, never inferred by the engine. Reconnecting resets the
// missed-turn counter; it never reinstates a forfeited seat.
func (s *Session) SetConnected(name string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flush()
	s.setConnected(name, connected)
}

func (s *Session) setConnected(name string, connected bool) {
	p := s.findPlayer(name)
	if p == nil {
		return // already forfeited or never seated
	}
	p.Connected = connected
	if connected {
		p.MissedTurns = 0
	}
	s.logger.Info("connection changed", "player", name, "connected", connected)
	if s.status == StatusWaiting {
		s.emit(s.lobbyUpdate())
	} else {
		s.emit(s.gameState())
	}
}

// Winner returns the winning player's name once the session is
// Finished.
func (s *Session) Winner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// --- turn machinery, called with the lock held ---

// currentPlayer resolves the acting seat from the pointer and the
// direction flag. Recomputed on every use so seating changes from
// forfeiture are always reflected.
func (s *Session) currentPlayer() *Player {
	n := len(s.players)
	if n == 0 {
		return nil
	}
	idx := s.turn
	if s.reversed {
		idx = n - 1 - s.turn
	}
	if idx < 0 || idx >= n {
		return nil
	}
	return s.players[idx]
}

func (s *Session) advanceTurn() {
	s.advancePointer()
	s.beginTurn()
}

func (s *Session) advancePointer() {
	n := len(s.players)
	if n == 0 {
		return
	}
	s.turn = (s.turn + 1) % n
	if s.skipNext {
		s.skipNext = false
		s.turn = (s.turn + 1) % n
	}
}

// beginTurn starts the acting seat's turn: arm the turn timer for a
// connected seat, or walk past disconnected seats, forfeiting any that
// have reached the missed-turn threshold.
func (s *Session) beginTurn() {
	for {
		if s.status != StatusPlaying || len(s.players) == 0 {
			s.stopTimer()
			return
		}
		p := s.currentPlayer()
		if p.Connected {
			s.armTimer(s.cfg.TurnTimeout, s.handleTurnTimeout)
			s.emit(YourHandEvent{Player: p.Name, Cards: slices.Clone(p.Hand)})
			s.emit(PlayerTurnEvent{Player: p.Name, TimeLimit: seconds(s.cfg.TurnTimeout)})
			return
		}

		p.MissedTurns++
		s.logger.Debug("turn start while disconnected", "player", p.Name, "missed", p.MissedTurns)
		if p.MissedTurns >= s.cfg.ForfeitThreshold {
			s.forfeit(p)
			if len(s.players) == 0 {
				s.stopTimer()
				s.logger.Warn("session abandoned, all seats forfeited")
				return
			}
			// removing the seat already moved the pointer onto the next
			// seat in both directions, so no advance here
			continue
		}
		s.advancePointer()
	}
}

// forfeit removes a seat, returning its hand to the bottom of the draw
// pile and re-clamping the turn pointer into the shrunk seating.
func (s *Session) forfeit(p *Player) {
	for _, card := range p.Hand {
		s.drawPile.PushBottom(card)
	}
	p.Hand = nil

	for i, seated := range s.players {
		if seated == p {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	if s.turn >= len(s.players) {
		s.turn = 0
	}

	s.logger.Info("player forfeited", "player", p.Name, "remaining", len(s.players))
	s.emit(PlayerForfeitedEvent{Player: p.Name, Reason: "disconnected_for_two_turns"})
	s.emit(s.gameState())
}

func (s *Session) handleTurnTimeout() {
	if s.status != StatusPlaying {
		return
	}
	p := s.currentPlayer()
	if p == nil {
		return
	}

	// auto-draw on the player's behalf; a normal game action, not an
	// InvalidMove
	if card, ok := s.draw(); ok {
		p.GiveCard(card)
		s.emit(CardDrawnEvent{Player: p.Name, Card: card})
		s.emit(YourHandEvent{Player: p.Name, Cards: slices.Clone(p.Hand)})
	}
	s.logger.Debug("turn timed out", "player", p.Name)
	s.emit(TurnTimeoutEvent{Player: p.Name, Action: "auto_draw_card"})
	s.emit(s.gameState())
	s.advanceTurn()
}

func (s *Session) handleChallengeTimeout() {
	ch := s.challenge
	if ch == nil || s.status != StatusPlaying {
		return
	}
	s.resolveChallenge(false, "timeout", ch.limit)
}

// draw pops the top of the draw pile, recycling the discard pile into
// it first if empty. Returns false only when no card exists outside the
// discard top, which the 52-card invariant makes unreachable in normal
// play.
func (s *Session) draw() (deck.Card, bool) {
	if s.drawPile.Empty() {
		s.discardPile.RecycleInto(s.drawPile, s.rng)
	}
	return s.drawPile.DrawTop()
}

// --- timer slot ---

// armTimer replaces any outstanding timer with a new one. The epoch
// captured by the callback invalidates cancelled timers even if they
// were already mid-fire when Stop ran.
func (s *Session) armTimer(d time.Duration, fn func()) {
	s.timerEpoch++
	epoch := s.timerEpoch
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.flush()
		if epoch != s.timerEpoch {
			return
		}
		s.timer = nil
		fn()
	})
}

func (s *Session) stopTimer() {
	s.timerEpoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// --- events, called with the lock held ---

func (s *Session) emit(ev Event) {
	s.queue = append(s.queue, ev)
}

// flush hands queued events to the sink in emission order. Runs under
// the session lock so the event stream observes the same total order as
// the mutations that produced it.
func (s *Session) flush() {
	queue := s.queue
	s.queue = nil
	if s.sink == nil {
		return
	}
	for _, ev := range queue {
		s.sink(ev)
	}
}

func (s *Session) lobbyUpdate() LobbyUpdateEvent {
	players := make([]LobbyPlayer, 0, len(s.players))
	ready := 0
	for _, p := range s.players {
		if p.Ready {
			ready++
		}
		players = append(players, LobbyPlayer{Name: p.Name, Connected: p.Connected, Ready: p.Ready})
	}
	return LobbyUpdateEvent{
		GameID:       s.id,
		Players:      players,
		PlayersReady: ready,
		TotalPlayers: len(s.players),
	}
}

func (s *Session) gameState() GameStateEvent {
	ev := GameStateEvent{
		GameID:          s.id,
		Status:          string(s.status),
		DrawPileSize:    s.drawPile.Len(),
		DiscardPileSize: s.discardPile.Len(),
		Direction:       "forward",
	}
	if s.reversed {
		ev.Direction = "reverse"
	}
	if top, ok := s.discardPile.PeekTop(); ok {
		ev.TopCard = &top
	}
	current := s.currentPlayer()
	if s.status == StatusPlaying && current != nil {
		ev.CurrentPlayer = current.Name
	}
	ev.Players = make([]PlayerState, 0, len(s.players))
	for _, p := range s.players {
		ev.Players = append(ev.Players, PlayerState{
			Name:        p.Name,
			HandSize:    p.HandSize(),
			Connected:   p.Connected,
			CurrentTurn: s.status == StatusPlaying && p == current,
		})
	}
	return ev
}

func (s *Session) findPlayer(name string) *Player {
	for _, p := range s.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}
