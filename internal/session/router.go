package session

import (
	"context"
	"sync"

	"github.com/lox/holdem-lobby/internal/round"
)

// ActionRouter delivers one seat's play action from its PlayerSession to
// the LobbyEngine driving that Lobby's RoundCoordinator: the engine blocks
// on the on-turn seat's channel instead of polling lobby state for a new
// action to appear.
type ActionRouter struct {
	mu    sync.Mutex
	chans map[string]chan round.Action
}

// NewActionRouter creates an empty router for one Lobby's lifetime.
func NewActionRouter() *ActionRouter {
	return &ActionRouter{chans: make(map[string]chan round.Action)}
}

// Register opens name's inbound action channel. Call once when a seat
// joins the lobby; Unregister when it leaves.
func (r *ActionRouter) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chans[name] = make(chan round.Action, 1)
}

// Unregister closes and removes name's channel.
func (r *ActionRouter) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.chans[name]; ok {
		delete(r.chans, name)
		close(ch)
	}
}

// Deliver hands a parsed play action to name's channel. It returns false if
// name has no registered channel (not seated) or already has an action
// pending (a second frame arrived before the engine consumed the first).
func (r *ActionRouter) Deliver(name string, a round.Action) bool {
	r.mu.Lock()
	ch, ok := r.chans[name]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- a:
		return true
	default:
		return false
	}
}

// WaitForAction blocks until name submits a play action, ctx is cancelled,
// or name's channel is closed (seat left). ok is false in the latter two
// cases.
func (r *ActionRouter) WaitForAction(ctx context.Context, name string) (round.Action, bool) {
	r.mu.Lock()
	ch, ok := r.chans[name]
	r.mu.Unlock()
	if !ok {
		return round.Action{}, false
	}
	select {
	case a, ok := <-ch:
		return a, ok
	case <-ctx.Done():
		return round.Action{}, false
	}
}
