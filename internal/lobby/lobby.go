// Package lobby implements the shared room state a RoundCoordinator drives:
// seating, turn order, betting totals, and broadcast fan-out for one room.
package lobby

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-lobby/internal/deck"
	"github.com/lox/holdem-lobby/internal/player"
)

var (
	ErrLobbyFull     = errors.New("lobby: full")
	ErrNameTaken     = errors.New("lobby: player name already seated")
	ErrUnknownPlayer = errors.New("lobby: no such player")
	ErrGameInProgress = errors.New("lobby: game already in progress")
)

// StatsFlusher is the AccountStore contract the core touches at round end.
// Defined here, implemented externally in internal/store, to keep Lobby
// decoupled from any particular persistence technology.
type StatsFlusher interface {
	FlushStats(ctx context.Context, name string, gamesPlayedDelta, gamesWonDelta int, wallet int) error
}

// DirectoryNotifier is called whenever roster/state changes that the
// server-wide lobby directory should reflect (component 6, Registry).
type DirectoryNotifier interface {
	NotifyLobbyChanged(name string)
}

// Lobby is one named room running one poker round at a time. All mutation
// happens with mu held. The Registry never acquires mu. A Lobby does call
// into the Registry (DirectoryNotifier) from AddPlayer and RemovePlayer,
// and finishRound reaches RemovePlayer with mu held, so the lock order
// taken is Lobby, then Registry, then playersMu.
type Lobby struct {
	mu sync.Mutex

	Name    string
	Variant Variant

	Deck            *deck.Deck
	Pot             int
	CommunityCards  []deck.Card
	MaxCount        int
	GameState       GameState

	FirstBettingPlayer int
	CurrentPlayerIndex int
	CurrentPlayerName  string
	TurnsRemaining     int
	CurrentMaxBet      int
	DealCardCounter    int
	BettingRoundCounter int

	playersMu  sync.RWMutex
	players    []*player.Player
	spectators map[string]*player.Player

	rng    *rand.Rand
	logger zerolog.Logger
	store  StatsFlusher
	dir    DirectoryNotifier
}

// New creates an empty, joinable lobby for the given variant.
func New(name string, variant Variant, rng *rand.Rand, logger zerolog.Logger, store StatsFlusher, dir DirectoryNotifier) *Lobby {
	return &Lobby{
		Name:       name,
		Variant:    variant,
		Deck:       deck.New(),
		MaxCount:   variant.MaxSeats(),
		GameState:  Joinable,
		spectators: make(map[string]*player.Player),
		rng:        rng,
		logger:     logger.With().Str("component", "lobby").Str("lobby", name).Logger(),
		store:      store,
		dir:        dir,
	}
}

// Lock/Unlock expose the Lobby's single critical section to callers (the
// session actor driving a round) that must perform several API calls as
// one atomic step, e.g. validate-then-mutate on a play action.
func (l *Lobby) Lock()   { l.mu.Lock() }
func (l *Lobby) Unlock() { l.mu.Unlock() }

// CurrentCount returns the number of seated (non-spectator) players.
// Caller must hold the lock, or accept a racy read for display purposes.
func (l *Lobby) CurrentCount() int {
	l.playersMu.RLock()
	defer l.playersMu.RUnlock()
	return len(l.players)
}

// Players returns a snapshot slice of the seated players, safe to read
// without the caller separately holding mu.
func (l *Lobby) Players() []*player.Player {
	l.playersMu.RLock()
	defer l.playersMu.RUnlock()
	out := make([]*player.Player, len(l.players))
	copy(out, l.players)
	return out
}

// PlayerAt returns the seated player at index i, or nil if out of range.
func (l *Lobby) PlayerAt(i int) *player.Player {
	l.playersMu.RLock()
	defer l.playersMu.RUnlock()
	if i < 0 || i >= len(l.players) {
		return nil
	}
	return l.players[i]
}

// FindPlayer looks up a seated player by name.
func (l *Lobby) FindPlayer(name string) *player.Player {
	l.playersMu.RLock()
	defer l.playersMu.RUnlock()
	for _, p := range l.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AddPlayer seats p, rejecting duplicates or a full room, and transitions
// game_state to GAME_LOBBY_FULL at capacity.
func (l *Lobby) AddPlayer(p *player.Player) error {
	l.playersMu.Lock()
	if len(l.players) >= l.MaxCount {
		l.playersMu.Unlock()
		return ErrLobbyFull
	}
	for _, existing := range l.players {
		if existing.Name == p.Name {
			l.playersMu.Unlock()
			return ErrNameTaken
		}
	}
	l.players = append(l.players, p)
	full := len(l.players) >= l.MaxCount
	l.playersMu.Unlock()

	p.LobbyName = l.Name
	p.State = player.InLobby
	if full {
		l.GameState = GameLobbyFull
		l.TurnsRemaining = l.CurrentCount()
	}
	l.broadcastRosterLocked()
	l.notifyDirectory()
	return nil
}

// RemovePlayer unseats name, restoring JOINABLE if the room had been full,
// and broadcasts the new roster.
func (l *Lobby) RemovePlayer(name string) {
	l.playersMu.Lock()
	for i, p := range l.players {
		if p.Name == name {
			l.players = append(l.players[:i], l.players[i+1:]...)
			break
		}
	}
	wasFull := l.GameState == GameLobbyFull
	l.playersMu.Unlock()

	if wasFull {
		l.GameState = Joinable
		l.TurnsRemaining = 0
	}
	l.broadcastRosterLocked()
	l.notifyDirectory()
}

// AddSpectator attaches a read-only observer; spectators never occupy a
// seat index and never affect turns_remaining.
func (l *Lobby) AddSpectator(p *player.Player) {
	l.playersMu.Lock()
	l.spectators[p.Name] = p
	l.playersMu.Unlock()
	p.LobbyName = l.Name
	p.State = player.Spectator
}

// RemoveSpectator detaches a spectator by name.
func (l *Lobby) RemoveSpectator(name string) {
	l.playersMu.Lock()
	delete(l.spectators, name)
	l.playersMu.Unlock()
}

// SetupRound advances first_betting_player, resets per-round cursors, and
// shuffles the deck. Caller must hold the lock.
func (l *Lobby) SetupRound() {
	count := l.CurrentCount()
	if count == 0 {
		return
	}
	l.FirstBettingPlayer = (l.FirstBettingPlayer + 1) % count
	l.CurrentPlayerIndex = l.FirstBettingPlayer
	l.CurrentPlayerName = l.nameAtLocked(l.CurrentPlayerIndex)
	l.TurnsRemaining = count
	l.Deck.Shuffle(l.rng)
	l.GameState = StartOfRound
	l.Pot = 0
	l.CurrentMaxBet = 0
	l.CommunityCards = nil
	l.DealCardCounter = 0
	l.BettingRoundCounter = 0
}

// AdvanceTurn moves the on-turn cursor. If reset, it jumps back to
// first_betting_player; otherwise it steps forward one seat, skipping
// FOLDED seats always and ALL_IN seats when skipAllIn is true (betting
// phases skip all-in seats; deal/draw phases do not, since an all-in seat
// still receives cards).
func (l *Lobby) AdvanceTurn(reset bool, skipAllIn bool) {
	count := l.CurrentCount()
	if count == 0 {
		return
	}
	idx := l.CurrentPlayerIndex
	if reset {
		idx = l.FirstBettingPlayer
	} else {
		idx = (idx + 1) % count
	}
	for i := 0; i < count; i++ {
		p := l.PlayerAt(idx)
		if p == nil {
			break
		}
		if p.State == player.Folded {
			idx = (idx + 1) % count
			continue
		}
		if skipAllIn && p.State == player.AllIn {
			idx = (idx + 1) % count
			continue
		}
		break
	}
	l.CurrentPlayerIndex = idx
	l.CurrentPlayerName = l.nameAtLocked(idx)
}

func (l *Lobby) nameAtLocked(idx int) string {
	p := l.PlayerAt(idx)
	if p == nil {
		return ""
	}
	return p.Name
}

// CheckEndGame reports whether a round is decided by elimination: one (or
// zero) non-folded seats remain.
func (l *Lobby) CheckEndGame() bool {
	active := 0
	for _, p := range l.Players() {
		if p.State != player.Folded {
			active++
		}
	}
	return active <= 1
}

// ClearBetting zeroes every current_bet and current_max_bet between
// betting rounds.
func (l *Lobby) ClearBetting() {
	for _, p := range l.Players() {
		p.CurrentBet = 0
	}
	l.CurrentMaxBet = 0
}

// ActiveNonFoldedNonAllIn returns seats that still owe an action in the
// current betting phase.
func (l *Lobby) ActiveNonFoldedNonAllIn() []*player.Player {
	var out []*player.Player
	for _, p := range l.Players() {
		if p.State != player.Folded && p.State != player.AllIn {
			out = append(out, p)
		}
	}
	return out
}

// UpdateStatsToStore flushes this round's deltas to the AccountStore for
// every seated player; it does not touch in-memory round state. Each player's
// flush is independent, so they run concurrently; a persistence failure is
// logged per player, not fatal — in-memory wallet stays authoritative.
func (l *Lobby) UpdateStatsToStore(ctx context.Context, gamesWon map[string]bool) {
	if l.store == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range l.Players() {
		p := p
		won := 0
		if gamesWon[p.Name] {
			won = 1
		}
		g.Go(func() error {
			if err := l.store.FlushStats(gctx, p.Name, 1, won, p.Wallet); err != nil {
				l.logger.Error().Err(err).Str("player", p.Name).Msg("failed to flush player stats")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Lobby) broadcastRosterLocked() {
	type rosterEntry struct {
		Name   string `json:"name"`
		Wallet int    `json:"wallet"`
		Ready  bool   `json:"ready"`
		State  string `json:"state"`
	}
	roster := struct {
		Players []rosterEntry `json:"players"`
	}{}
	for _, p := range l.Players() {
		roster.Players = append(roster.Players, rosterEntry{
			Name: p.Name, Wallet: p.Wallet, Ready: p.Ready, State: p.State.String(),
		})
	}
	l.broadcastAll(map[string]any{"players": roster.Players})
}

// BroadcastGameInfo sends the current game-info projection to every seated
// player and spectator.
func (l *Lobby) BroadcastGameInfo() {
	l.broadcastAll(map[string]any{
		"gameInfo": map[string]any{
			"gameState":        l.GameState.String(),
			"pot":              l.Pot,
			"currentMaxBet":    l.CurrentMaxBet,
			"communityCards":   cardsToStrings(l.CommunityCards),
			"currentPlayerTurn": l.CurrentPlayerName,
		},
	})
}

// BroadcastLobbyInfo unicasts a room snapshot to one player.
func (l *Lobby) BroadcastLobbyInfo(p *player.Player) {
	p.Send(map[string]any{
		"lobbyInfo": map[string]any{
			"name":         l.Name,
			"variant":      l.Variant.String(),
			"currentCount": l.CurrentCount(),
			"maxCount":     l.MaxCount,
			"gameState":    l.GameState.String(),
		},
	})
}

// ShowdownHand is one seat's revealed hand, broadcast once per round at
// SHOWDOWN.
type ShowdownHand struct {
	Name      string   `json:"name"`
	HoleCards []string `json:"holeCards"`
	Winner    bool     `json:"winner"`
	Share     int      `json:"share,omitempty"`
}

// BroadcastShowdown reveals every non-folded hand and the board (empty
// outside Hold'em) to the whole room at the end of a round.
func (l *Lobby) BroadcastShowdown(hands []ShowdownHand, communityCards []string) {
	l.broadcastAll(map[string]any{
		"type":           "showdownHands",
		"hands":          hands,
		"communityCards": communityCards,
	})
}

// BroadcastMessage sends a plain one-line notice to every seated player and
// spectator.
func (l *Lobby) BroadcastMessage(msg string) {
	l.broadcastAll(map[string]any{"message": msg})
}

func (l *Lobby) broadcastAll(frame any) {
	for _, p := range l.Players() {
		p.Send(frame)
	}
	l.playersMu.RLock()
	specs := make([]*player.Player, 0, len(l.spectators))
	for _, s := range l.spectators {
		specs = append(specs, s)
	}
	l.playersMu.RUnlock()
	for _, s := range specs {
		s.Send(frame)
	}
}

func (l *Lobby) notifyDirectory() {
	if l.dir != nil {
		l.dir.NotifyLobbyChanged(l.Name)
	}
}

func cardsToStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// HandleDisconnect folds a disconnecting seat immediately rather than
// waiting for the round's final accounting pass, so the round can keep
// moving without that seat. turns_remaining is updated exactly as a legal
// fold would. Returns true if this fold ended the round.
func (l *Lobby) HandleDisconnect(name string) (roundEnded bool) {
	p := l.FindPlayer(name)
	if p == nil {
		return false
	}
	wasOnTurn := l.CurrentPlayerName == name
	alreadyFolded := p.State == player.Folded
	p.State = player.Folded
	p.Disconnected = true
	if wasOnTurn && !alreadyFolded && l.GameState != Joinable && l.GameState != GameLobbyFull {
		if l.TurnsRemaining > 0 {
			l.TurnsRemaining--
		}
	}
	return l.CheckEndGame()
}
