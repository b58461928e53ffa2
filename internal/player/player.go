// Package player defines the per-seat player record shared by a Lobby and
// the session that owns it.
package player

import "github.com/lox/holdem-lobby/internal/deck"

// State is the player's lifecycle/action state.
type State int

const (
	Ready State = iota
	InLobby
	InGame
	Folded
	Checked
	Called
	Raised
	AllIn
	Spectator
	LoggingIn
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case InLobby:
		return "IN_LOBBY"
	case InGame:
		return "IN_GAME"
	case Folded:
		return "FOLDED"
	case Checked:
		return "CHECKED"
	case Called:
		return "CALLED"
	case Raised:
		return "RAISED"
	case AllIn:
		return "ALL_IN"
	case Spectator:
		return "SPECTATOR"
	case LoggingIn:
		return "LOGGING_IN"
	default:
		return "UNKNOWN"
	}
}

// Outbound is the narrow sender interface a Lobby broadcasts through. The
// real implementation (transport.Conn) lives outside this package; tests
// supply a channel-backed fake.
type Outbound interface {
	Send(frame any)
}

// Player is one seat's mutable record. Fields are only ever touched while
// the owning Lobby's lock is held.
type Player struct {
	Name string // unique key
	ID   string

	Hand       []deck.Card
	Wallet     int
	State      State
	CurrentBet int
	Ready      bool

	GamesPlayed int
	GamesWon    int

	// Disconnected marks a seat whose connection dropped mid-round. It is
	// folded immediately (see Lobby.HandleDisconnect) but only actually
	// unseated once the round reaches UPDATE_STORE.
	Disconnected bool

	Out Outbound

	// LobbyName is the name of the Lobby this player currently occupies,
	// resolved by name rather than held as a back-reference, so a Player
	// doesn't need a pointer cycle back into the Lobby that owns it.
	LobbyName string
}

// New creates a player record for a freshly logged-in connection.
func New(name, id string, wallet int, out Outbound) *Player {
	return &Player{
		Name:   name,
		ID:     id,
		Wallet: wallet,
		State:  InLobby,
		Out:    out,
	}
}

// Send forwards a frame to the player's outbound channel, if attached.
func (p *Player) Send(frame any) {
	if p.Out != nil {
		p.Out.Send(frame)
	}
}

// ResetForNewRound clears per-round fields once a round's payouts and
// stats have been settled, leaving the player ready to be seated again.
func (p *Player) ResetForNewRound() {
	p.Hand = nil
	p.CurrentBet = 0
	p.Ready = false
}
