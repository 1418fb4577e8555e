// Package game implements the session engine for a shedding-style
// card game: the turn state machine, move validation, special-effect
// dispatch, turn and typing-challenge timers, and disconnect
// bookkeeping.
//
// The main type is Session. All commands and timer firings for one
// session serialize through its mutex, so effects apply one at a time
// in arrival order; different sessions share nothing and run fully in
// parallel. Every mutation emits its notifications through the
// session's Sink exactly once, in emission order.
//
// # Deterministic Testing
//
// Sessions take a quartz.Clock and a *rand.Rand, so tests drive timers
// with quartz.NewMock and get reproducible shuffles from a fixed seed:
//
//	clock := quartz.NewMock(t)
//	s := game.NewSession("test", game.DefaultConfig(), logger, clock, randutil.New(42))
//
// # Components
//
//   - Session: state machine, move validation, timers, forfeiture
//   - Effect: closed set of special-card behaviors (skip, reverse,
//     typing challenge) applied by one dispatcher
//   - Registry: creates and looks up sessions by id
//   - deck.Pile: the draw and discard piles, with recycle
package game
