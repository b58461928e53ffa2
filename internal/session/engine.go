package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/protocol"
	"github.com/lox/holdem-lobby/internal/round"
)

// LobbyEngine drives one Lobby's RoundCoordinator from START_OF_ROUND
// through UPDATE_STORE, one round per Run call. A fresh Run is spawned
// each time a StartGame vote fills the lobby; Run returns once the round
// lands back on JOINABLE.
type LobbyEngine struct {
	L      *lobby.Lobby
	Router *ActionRouter
	Ctx    context.Context
	Logger zerolog.Logger
}

func newCoordinator(l *lobby.Lobby, ctx context.Context, logger zerolog.Logger) round.Coordinator {
	switch l.Variant {
	case lobby.FiveCardDraw:
		return &round.FiveCardDraw{L: l, Ctx: ctx, Logger: logger}
	case lobby.SevenCardStud:
		return &round.SevenCardStud{L: l, Ctx: ctx, Logger: logger}
	case lobby.TexasHoldEm:
		return &round.TexasHoldEm{L: l, Ctx: ctx, Logger: logger}
	default:
		return nil
	}
}

// Run loops: advance automatic phase work under the lobby lock, then block
// (lock released) on the on-turn seat's action channel whenever the
// coordinator reports it's waiting on input. It returns once the round
// reaches JOINABLE or the context is cancelled.
func (e *LobbyEngine) Run() {
	coordinator := newCoordinator(e.L, e.Ctx, e.Logger)
	if coordinator == nil {
		return
	}

	for {
		select {
		case <-e.Ctx.Done():
			return
		default:
		}

		e.L.Lock()
		state := e.L.GameState
		if state == lobby.Joinable || state == lobby.GameLobbyFull {
			e.L.Unlock()
			return
		}
		awaiting := coordinator.Step()
		name := e.L.CurrentPlayerName
		e.L.Unlock()
		e.L.BroadcastGameInfo()

		if !awaiting {
			continue
		}

		act, ok := e.Router.WaitForAction(e.Ctx, name)
		if !ok {
			// No live session holds this seat's channel (it disconnected
			// between becoming on-turn and acting). Route the fold through
			// the coordinator itself, same as any other play action, so
			// turns_remaining/cursor/phase transition stay consistent;
			// HandleDisconnect's own bookkeeping would skip that advance.
			e.L.Lock()
			if p := e.L.FindPlayer(name); p != nil {
				p.Disconnected = true
			}
			err := coordinator.Apply(name, round.Action{Type: protocol.ActionFold})
			e.L.Unlock()
			if err != nil {
				e.Logger.Debug().Err(err).Str("player", name).Msg("auto-fold on disconnect rejected")
			}
			e.L.BroadcastGameInfo()
			continue
		}

		e.L.Lock()
		err := coordinator.Apply(name, act)
		e.L.Unlock()
		if err != nil {
			e.Logger.Debug().Err(err).Str("player", name).Str("action", act.Type).Msg("play action rejected")
			if p := e.L.FindPlayer(name); p != nil {
				p.Send(protocol.ErrorFrame{Error: err.Error()})
			}
			continue
		}
		if act.Type == protocol.ActionDrawCards {
			e.L.BroadcastMessage(fmt.Sprintf("%s exchanged %d card(s)", name, len(act.Indices)))
		}
	}
}
