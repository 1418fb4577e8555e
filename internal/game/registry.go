package game

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/maoserver/internal/gameid"
	"github.com/lox/maoserver/internal/randutil"
)

// Summary holds lightweight session metadata for listings.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Status      string `json:"status"`
	Players     int    `json:"players"`
	HasPassword bool   `json:"has_password"`
}

// Registry creates and looks up sessions by identifier. There is no
// implicit default session; a single-session deployment is a registry
// with one entry. Sessions share no mutable state with each other.
type Registry struct {
	logger *log.Logger
	clock  quartz.Clock

	mu       sync.RWMutex
	sessions map[string]*Session

	seed     int64
	seeded   bool
	nextSeed int64
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithSeed makes session shuffles deterministic: session n is seeded
// with seed+n. Used by tests.
func WithSeed(seed int64) RegistryOption {
	return func(r *Registry) {
		r.seed = seed
		r.seeded = true
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *log.Logger, clock quartz.Clock, opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:   logger.WithPrefix("registry"),
		clock:    clock,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create makes a fresh Waiting session with a unique id and registers
// it.
func (r *Registry) Create(cfg Config) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	rng := randutil.FromTime()
	if r.seeded {
		rng = randutil.New(r.seed + r.nextSeed)
		r.nextSeed++
	}

	id := gameid.New()
	session := NewSession(id, cfg, r.logger, r.clock, rng)
	r.sessions[id] = session
	r.logger.Info("session created", "game", id, "hasPassword", session.HasPassword())
	return session
}

// Get retrieves a session by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Remove drops a session from the registry. The engine never deletes
// abandoned sessions itself; this is the cleanup hook for whoever owns
// the registry.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.logger.Info("session removed", "game", id)
	return true
}

// List returns a snapshot of registered sessions.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		summaries = append(summaries, Summary{
			ID:          s.ID(),
			Name:        s.Name(),
			Status:      string(s.Status()),
			Players:     s.PlayerCount(),
			HasPassword: s.HasPassword(),
		})
	}
	return summaries
}
