package session

import (
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/registry"
	"github.com/lox/holdem-lobby/internal/store"
)

// Hub is the server-wide state every Session shares: the lobby directory,
// the persisted account store, and one ActionRouter per active lobby.
type Hub struct {
	Registry       *registry.Registry
	Store          store.Store
	Rng            *rand.Rand
	Logger         zerolog.Logger
	StartingWallet int

	mu      sync.Mutex
	routers map[string]*ActionRouter
}

// NewHub constructs a Hub ready to accept connections.
func NewHub(reg *registry.Registry, st store.Store, rng *rand.Rand, startingWallet int, logger zerolog.Logger) *Hub {
	return &Hub{
		Registry:       reg,
		Store:          st,
		Rng:            rng,
		Logger:         logger.With().Str("component", "hub").Logger(),
		StartingWallet: startingWallet,
		routers:        make(map[string]*ActionRouter),
	}
}

// routerFor returns (creating if absent) the ActionRouter for a lobby name.
func (h *Hub) routerFor(name string) *ActionRouter {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.routers[name]
	if !ok {
		r = NewActionRouter()
		h.routers[name] = r
	}
	return r
}

// dropRouter discards a lobby's router once its last seat has left.
func (h *Hub) dropRouter(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.routers, name)
}
