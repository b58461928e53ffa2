// Package registry implements the server-wide directory of lobbies: create,
// destroy, list, and the directory broadcast every session's server-lobby
// loop subscribes to.
package registry

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
)

var (
	ErrNameTaken    = errors.New("registry: lobby name already exists")
	ErrUnknownLobby = errors.New("registry: no such lobby")
)

// Entry is the directory projection published to clients listing rooms.
type Entry struct {
	Name         string `json:"name"`
	GameState    string `json:"gameState"`
	Variant      string `json:"variant"`
	CurrentCount int    `json:"currentCount"`
	MaxCount     int    `json:"maxCount"`
}

// Subscriber receives the directory projection whenever it changes. A
// PlayerSession sitting in the server-lobby loop implements this.
type Subscriber interface {
	SendDirectory(entries []Entry)
}

// Registry is the top-level lobby directory. It never acquires a Lobby's
// own lock; while holding its lock it only takes a Lobby's internal
// players lock (through CurrentCount). A Lobby may call NotifyLobbyChanged
// while holding its own lock, so the Registry lock is taken after, not
// before, a Lobby lock.
type Registry struct {
	mu     sync.RWMutex
	lobbies map[string]*lobby.Lobby

	subsMu sync.Mutex
	subs   map[*player.Player]Subscriber

	store  lobby.StatsFlusher
	logger zerolog.Logger
}

var _ lobby.DirectoryNotifier = (*Registry)(nil)

// New constructs an empty registry. store is handed to every lobby created
// through this registry so each can flush stats at round end.
func New(store lobby.StatsFlusher, logger zerolog.Logger) *Registry {
	return &Registry{
		lobbies: make(map[string]*lobby.Lobby),
		subs:    make(map[*player.Player]Subscriber),
		store:   store,
		logger:  logger.With().Str("component", "registry").Logger(),
	}
}

// CreateLobby adds a new named, empty lobby for the given variant. Lobby
// names are unique across the server; a second CreateLobby with the same
// name fails.
func (r *Registry) CreateLobby(name string, variant lobby.Variant, rng *rand.Rand) (*lobby.Lobby, error) {
	r.mu.Lock()
	if _, exists := r.lobbies[name]; exists {
		r.mu.Unlock()
		return nil, ErrNameTaken
	}
	l := lobby.New(name, variant, rng, r.logger, r.store, r)
	r.lobbies[name] = l
	r.mu.Unlock()

	r.logger.Info().Str("lobby", name).Str("variant", variant.String()).Msg("lobby created")
	r.broadcastDirectory()
	return l, nil
}

// DestroyLobby removes a lobby from the directory. Its caller is the
// session layer, when the last player leaves a room; a panic inside a
// lobby is not recovered and does not evict it.
func (r *Registry) DestroyLobby(name string) {
	r.mu.Lock()
	_, existed := r.lobbies[name]
	delete(r.lobbies, name)
	r.mu.Unlock()

	if existed {
		r.logger.Info().Str("lobby", name).Msg("lobby destroyed")
		r.broadcastDirectory()
	}
}

// Lookup returns the named lobby, or ErrUnknownLobby.
func (r *Registry) Lookup(name string) (*lobby.Lobby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[name]
	if !ok {
		return nil, ErrUnknownLobby
	}
	return l, nil
}

// List returns a snapshot of the directory projection for every lobby.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		out = append(out, entryFor(l))
	}
	return out
}

func entryFor(l *lobby.Lobby) Entry {
	return Entry{
		Name:         l.Name,
		GameState:    l.GameState.String(),
		Variant:      l.Variant.String(),
		CurrentCount: l.CurrentCount(),
		MaxCount:     l.MaxCount,
	}
}

// Subscribe registers p to receive directory broadcasts, delivering the
// current snapshot immediately.
func (r *Registry) Subscribe(p *player.Player, sub Subscriber) {
	r.subsMu.Lock()
	r.subs[p] = sub
	r.subsMu.Unlock()
	sub.SendDirectory(r.List())
}

// Unsubscribe detaches p, e.g. once it has joined a lobby and left the
// server-lobby loop.
func (r *Registry) Unsubscribe(p *player.Player) {
	r.subsMu.Lock()
	delete(r.subs, p)
	r.subsMu.Unlock()
}

// NotifyLobbyChanged implements lobby.DirectoryNotifier: any roster or
// game-state change inside a lobby re-broadcasts the whole directory, not
// just on explicit client request.
func (r *Registry) NotifyLobbyChanged(name string) {
	r.broadcastDirectory()
}

func (r *Registry) broadcastDirectory() {
	entries := r.List()
	r.subsMu.Lock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.subsMu.Unlock()
	for _, s := range subs {
		s.SendDirectory(entries)
	}
}
