// Package session implements the per-connection PlayerSession actor: the
// login handshake, the server-lobby loop, and (once seated) the bridge
// between a connection's inbound frames and its Lobby's RoundCoordinator.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/config"
	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
	"github.com/lox/holdem-lobby/internal/protocol"
	"github.com/lox/holdem-lobby/internal/registry"
	"github.com/lox/holdem-lobby/internal/store"
)

var errDisconnectRequested = errors.New("session: client sent Disconnect")

// Conn is the narrow transport contract a Session drives. transport.Conn
// satisfies it; tests use a channel-backed fake.
type Conn interface {
	player.Outbound
	Recv() (json.RawMessage, bool)
	Close() error
}

// Session is one connection's actor.
type Session struct {
	hub    *Hub
	conn   Conn
	logger zerolog.Logger

	player     *player.Player
	lobby      *lobby.Lobby
	spectating bool
}

var _ registry.Subscriber = (*Session)(nil)

// New creates a Session bound to an already-upgraded connection. Call Run
// to drive it to completion.
func New(hub *Hub, conn Conn, logger zerolog.Logger) *Session {
	return &Session{hub: hub, conn: conn, logger: logger}
}

// Run drives the session's full lifecycle: login, then alternating
// directory and lobby loops, until the connection closes or the client
// disconnects. It always closes conn before returning.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()

	p, err := s.login(ctx)
	if err != nil {
		return
	}
	s.player = p
	s.logger = s.logger.With().Str("player", p.Name).Logger()
	defer s.logout(ctx)

	for {
		joined, err := s.directoryLoop(ctx)
		if err != nil || !joined {
			return
		}
		if err := s.lobbyLoop(ctx); err != nil {
			return
		}
	}
}

func (s *Session) logout(ctx context.Context) {
	if err := s.hub.Store.Logout(ctx, s.player.Name); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear logged-in flag")
	}
}

// login loops on Login/Register until one succeeds.
func (s *Session) login(ctx context.Context) (*player.Player, error) {
	for {
		raw, ok := s.conn.Recv()
		if !ok {
			return nil, errors.New("session: connection closed during login")
		}
		var frame protocol.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.conn.Send(protocol.ErrorFrame{Error: "malformed frame"})
			continue
		}
		var data protocol.LoginData
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				s.conn.Send(protocol.ErrorFrame{Error: "malformed login data"})
				continue
			}
		}
		if data.Username == "" {
			s.conn.Send(protocol.ErrorFrame{Error: "username required"})
			continue
		}

		var row store.PlayerRow
		var err error
		switch frame.Action {
		case protocol.ActionRegister:
			row, err = s.hub.Store.Register(ctx, data.Username, s.hub.StartingWallet)
		case protocol.ActionLogin:
			row, err = s.hub.Store.Login(ctx, data.Username)
		default:
			s.conn.Send(protocol.ErrorFrame{Error: "login or register required"})
			continue
		}
		if err != nil {
			s.conn.Send(protocol.ErrorFrame{Error: err.Error()})
			continue
		}

		p := player.New(row.Name, row.ID, row.Wallet, s.conn)
		p.GamesPlayed = row.GamesPlayed
		p.GamesWon = row.GamesWon
		s.conn.Send(protocol.PlainMessage{Message: fmt.Sprintf("welcome, %s", row.Name)})
		return p, nil
	}
}

// SendDirectory implements registry.Subscriber.
func (s *Session) SendDirectory(entries []registry.Entry) {
	out := make([]protocol.LobbyEntry, len(entries))
	for i, e := range entries {
		out[i] = protocol.LobbyEntry{
			Name: e.Name, GameState: e.GameState, Variant: e.Variant,
			CurrentCount: e.CurrentCount, MaxCount: e.MaxCount,
		}
	}
	s.conn.Send(protocol.DirectoryFrame{Lobbies: out})
}

// directoryLoop handles ShowLobbies, ShowPlayers, ShowStats, CreateLobby,
// JoinLobby, and Disconnect. It returns (true, nil) once a JoinLobby
// succeeds, handing control to lobbyLoop.
func (s *Session) directoryLoop(ctx context.Context) (bool, error) {
	s.hub.Registry.Subscribe(s.player, s)
	defer s.hub.Registry.Unsubscribe(s.player)

	for {
		raw, ok := s.conn.Recv()
		if !ok {
			return false, errors.New("session: connection closed")
		}
		var frame protocol.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.conn.Send(protocol.ErrorFrame{Error: "malformed frame"})
			continue
		}

		switch frame.Action {
		case protocol.ActionShowLobbies:
			s.SendDirectory(s.hub.Registry.List())

		case protocol.ActionShowPlayers, protocol.ActionShowStats:
			s.sendOwnStats(ctx)

		case protocol.ActionCreateLobby:
			var data protocol.CreateLobbyData
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				s.conn.Send(protocol.ErrorFrame{Error: "malformed create lobby data"})
				continue
			}
			variant := config.ParseVariant(data.Variant)
			if variant == lobby.NotSet {
				s.conn.Send(protocol.ErrorFrame{Error: fmt.Sprintf("unknown variant %q", data.Variant)})
				continue
			}
			if _, err := s.hub.Registry.CreateLobby(data.Name, variant, s.hub.Rng); err != nil {
				s.conn.Send(protocol.ErrorFrame{Error: err.Error()})
				continue
			}
			s.conn.Send(protocol.PlainMessage{Message: fmt.Sprintf("lobby %s created", data.Name)})

		case protocol.ActionJoinLobby:
			var data protocol.JoinLobbyData
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				s.conn.Send(protocol.ErrorFrame{Error: "malformed join lobby data"})
				continue
			}
			l, err := s.hub.Registry.Lookup(data.Name)
			if err != nil {
				s.conn.Send(protocol.ErrorFrame{Error: err.Error()})
				continue
			}
			s.lobby = l
			s.spectating = data.Spectate
			return true, nil

		case protocol.ActionDisconnect:
			return false, nil

		default:
			s.conn.Send(protocol.ErrorFrame{Error: fmt.Sprintf("unrecognized action %q", frame.Action)})
		}
	}
}

func (s *Session) sendOwnStats(ctx context.Context) {
	row, err := s.hub.Store.Stats(ctx, s.player.Name)
	if err != nil {
		s.conn.Send(protocol.ErrorFrame{Error: err.Error()})
		return
	}
	s.conn.Send(protocol.StatsFrame{Stats: protocol.StatsEntry{
		Name: row.Name, GamesPlayed: row.GamesPlayed, GamesWon: row.GamesWon, Wallet: row.Wallet,
	}})
}

// lobbyLoop dispatches to the spectator or seated-play loop depending on
// how the session joined, and returns to the directory loop on a clean
// Quit (nil error).
func (s *Session) lobbyLoop(ctx context.Context) error {
	l := s.lobby
	s.lobby = nil
	if s.spectating {
		return s.spectateLoop(l)
	}
	return s.playLoop(ctx, l)
}

// spectateLoop forwards broadcasts passively (delivered directly to
// player.Out by the Lobby) and only watches for Quit/Disconnect.
func (s *Session) spectateLoop(l *lobby.Lobby) error {
	l.AddSpectator(s.player)
	defer l.RemoveSpectator(s.player.Name)
	l.BroadcastLobbyInfo(s.player)

	for {
		raw, ok := s.conn.Recv()
		if !ok {
			return errors.New("session: connection closed while spectating")
		}
		var frame protocol.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.conn.Send(protocol.ErrorFrame{Error: "malformed frame"})
			continue
		}
		switch frame.Action {
		case protocol.ActionQuit:
			return nil
		case protocol.ActionDisconnect:
			return errDisconnectRequested
		default:
			s.conn.Send(protocol.ErrorFrame{Error: "spectators cannot act"})
		}
	}
}

// playLoop seats the player, registers its action channel, and handles
// Ready/StartGame/ShowLobbyInfo plus forwarding play actions to the
// Lobby's RoundCoordinator via its ActionRouter.
func (s *Session) playLoop(ctx context.Context, l *lobby.Lobby) error {
	if err := l.AddPlayer(s.player); err != nil {
		s.conn.Send(protocol.ErrorFrame{Error: err.Error()})
		return nil
	}
	router := s.hub.routerFor(l.Name)
	router.Register(s.player.Name)
	l.BroadcastLobbyInfo(s.player)

	defer s.leaveLobby(l, router)

	for {
		raw, ok := s.conn.Recv()
		if !ok {
			return errors.New("session: connection closed")
		}
		var frame protocol.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.conn.Send(protocol.ErrorFrame{Error: "malformed frame"})
			continue
		}

		switch {
		case frame.Action == protocol.ActionQuit:
			return nil

		case frame.Action == protocol.ActionDisconnect:
			return errDisconnectRequested

		case frame.Action == protocol.ActionReady:
			l.Lock()
			s.player.Ready = !s.player.Ready
			l.Unlock()
			l.BroadcastGameInfo()

		case frame.Action == protocol.ActionShowLobbyInfo:
			l.BroadcastLobbyInfo(s.player)

		case frame.Action == protocol.ActionStartGame:
			s.handleStartGame(ctx, l, router)

		case protocol.IsPlayAction(frame.Action):
			action, err := protocol.ParsePlayAction(frame)
			if err != nil {
				s.conn.Send(protocol.ErrorFrame{Error: err.Error()})
				continue
			}
			l.Lock()
			onTurn := l.CurrentPlayerName == s.player.Name
			l.Unlock()
			if !onTurn {
				// Authorization: an action from a seat that isn't on turn
				// is silently discarded, not queued against a later turn
				// and not echoed back as an error frame.
				continue
			}
			if !router.Deliver(s.player.Name, action) {
				s.conn.Send(protocol.ErrorFrame{Error: "action already pending"})
			}

		default:
			s.conn.Send(protocol.ErrorFrame{Error: fmt.Sprintf("unrecognized action %q", frame.Action)})
		}
	}
}

// handleStartGame implements the StartGame vote: each seated player's call
// decrements turns_remaining; the call that brings it to zero starts the
// round and spawns the LobbyEngine goroutine that drives it.
func (s *Session) handleStartGame(ctx context.Context, l *lobby.Lobby, router *ActionRouter) {
	l.Lock()
	if l.GameState != lobby.GameLobbyFull {
		l.Unlock()
		return
	}
	if l.TurnsRemaining > 0 {
		l.TurnsRemaining--
	}
	fire := l.TurnsRemaining == 0
	if fire {
		l.SetupRound()
	}
	l.Unlock()
	l.BroadcastGameInfo()

	if fire {
		go (&LobbyEngine{L: l, Router: router, Ctx: ctx, Logger: s.logger}).Run()
	}
}

// leaveLobby unseats the player: outside an active round the seat is
// removed immediately. Leaving mid-round, by Quit or by disconnect, folds
// it in place and leaves removal to the round's UPDATE_STORE phase; if the seat
// is currently on turn, Unregister closes its action channel and the
// LobbyEngine's own WaitForAction fallback applies the fold, so this only
// needs to handle the off-turn case directly (folding it here too would
// double-decrement turns_remaining when the engine's fallback also fires).
func (s *Session) leaveLobby(l *lobby.Lobby, router *ActionRouter) {
	l.Lock()
	inRound := l.GameState != lobby.Joinable && l.GameState != lobby.GameLobbyFull
	onTurn := l.CurrentPlayerName == s.player.Name
	if inRound && !onTurn {
		l.HandleDisconnect(s.player.Name)
	}
	l.Unlock()

	if inRound {
		l.BroadcastGameInfo()
	} else {
		l.RemovePlayer(s.player.Name)
	}
	router.Unregister(s.player.Name)

	if l.CurrentCount() == 0 {
		s.hub.Registry.DestroyLobby(l.Name)
		s.hub.dropRouter(l.Name)
	}
}
