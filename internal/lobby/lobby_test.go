package lobby

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-lobby/internal/player"
)

type recordingOutbound struct {
	mu     sync.Mutex
	frames []any
}

func (o *recordingOutbound) Send(frame any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, frame)
}

func (o *recordingOutbound) last() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.frames) == 0 {
		return nil
	}
	return o.frames[len(o.frames)-1]
}

type fakeFlusher struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFakeFlusher() *fakeFlusher {
	return &fakeFlusher{calls: make(map[string]int)}
}

func (f *fakeFlusher) FlushStats(ctx context.Context, name string, gamesPlayedDelta, gamesWonDelta, wallet int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	changed []string
}

func (n *fakeNotifier) NotifyLobbyChanged(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, name)
}

func newTestLobby(variant Variant, store StatsFlusher, dir DirectoryNotifier) *Lobby {
	rng := rand.New(rand.NewSource(1))
	return New("table", variant, rng, zerolog.Nop(), store, dir)
}

func TestAddPlayerFillsRoomAndSetsTurnsRemaining(t *testing.T) {
	l := newTestLobby(FiveCardDraw, nil, nil)
	names := []string{"a", "b", "c", "d", "e"}
	for i, name := range names {
		p := player.New(name, name, 1000, &recordingOutbound{})
		require.NoError(t, l.AddPlayer(p))
		if i < len(names)-1 {
			assert.Equal(t, Joinable, l.GameState)
		}
	}
	assert.Equal(t, GameLobbyFull, l.GameState)
	assert.Equal(t, 5, l.TurnsRemaining)
	assert.Equal(t, 5, l.CurrentCount())

	sixth := player.New("f", "f", 1000, &recordingOutbound{})
	assert.ErrorIs(t, l.AddPlayer(sixth), ErrLobbyFull)
}

func TestAddPlayerRejectsDuplicateName(t *testing.T) {
	l := newTestLobby(TexasHoldEm, nil, nil)
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 1000, &recordingOutbound{})))
	assert.ErrorIs(t, l.AddPlayer(player.New("alice", "2", 1000, &recordingOutbound{})), ErrNameTaken)
}

func TestRemovePlayerRestoresJoinableFromFull(t *testing.T) {
	l := newTestLobby(FiveCardDraw, nil, nil)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, l.AddPlayer(player.New(name, name, 1000, &recordingOutbound{})))
	}
	require.Equal(t, GameLobbyFull, l.GameState)

	l.RemovePlayer("a")
	assert.Equal(t, Joinable, l.GameState)
	assert.Equal(t, 0, l.TurnsRemaining)
	assert.Equal(t, 4, l.CurrentCount())
	assert.Nil(t, l.FindPlayer("a"))
}

func TestSetupRoundAdvancesFirstBettingPlayer(t *testing.T) {
	l := newTestLobby(TexasHoldEm, nil, nil)
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 1000, &recordingOutbound{})))
	require.NoError(t, l.AddPlayer(player.New("bob", "2", 1000, &recordingOutbound{})))

	l.Lock()
	l.SetupRound()
	first := l.FirstBettingPlayer
	l.Unlock()
	assert.Equal(t, "bob", l.CurrentPlayerName)
	assert.Equal(t, 1, first)

	l.Lock()
	l.SetupRound()
	second := l.FirstBettingPlayer
	l.Unlock()
	assert.Equal(t, "alice", l.CurrentPlayerName)
	assert.Equal(t, 0, second)
}

func TestAdvanceTurnSkipsFoldedAndAllIn(t *testing.T) {
	l := newTestLobby(TexasHoldEm, nil, nil)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, l.AddPlayer(player.New(name, name, 1000, &recordingOutbound{})))
	}
	l.Lock()
	defer l.Unlock()
	l.SetupRound()
	l.CurrentPlayerIndex = 0
	l.CurrentPlayerName = "a"
	l.PlayerAt(1).State = player.Folded
	l.PlayerAt(2).State = player.AllIn

	l.AdvanceTurn(false, true)
	assert.Equal(t, "a", l.CurrentPlayerName, "folded and all-in seats are both skipped, wrapping back to a")

	l.AdvanceTurn(false, false)
	assert.Equal(t, "c", l.CurrentPlayerName, "all-in seats are not skipped outside a betting phase")
}

func TestCheckEndGameTrueWithOneActiveSeat(t *testing.T) {
	l := newTestLobby(FiveCardDraw, nil, nil)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, l.AddPlayer(player.New(name, name, 1000, &recordingOutbound{})))
	}
	assert.False(t, l.CheckEndGame())
	l.FindPlayer("a").State = player.Folded
	assert.False(t, l.CheckEndGame())
	l.FindPlayer("b").State = player.Folded
	assert.True(t, l.CheckEndGame())
}

func TestHandleDisconnectFoldsAndDecrementsOnlyWhenOnTurn(t *testing.T) {
	l := newTestLobby(TexasHoldEm, nil, nil)
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 1000, &recordingOutbound{})))
	require.NoError(t, l.AddPlayer(player.New("bob", "2", 1000, &recordingOutbound{})))
	require.NoError(t, l.AddPlayer(player.New("carol", "3", 1000, &recordingOutbound{})))

	l.Lock()
	l.SetupRound()
	l.GameState = BettingRound
	l.TurnsRemaining = 2
	l.Unlock()

	require.Equal(t, "bob", l.CurrentPlayerName)

	ended := l.HandleDisconnect("alice")
	assert.False(t, ended)
	assert.Equal(t, player.Folded, l.FindPlayer("alice").State)
	assert.True(t, l.FindPlayer("alice").Disconnected)
	assert.Equal(t, 2, l.TurnsRemaining, "off-turn disconnect doesn't touch turns_remaining")

	ended = l.HandleDisconnect("bob")
	assert.True(t, ended, "folding down to one active seat decides the round")
	assert.Equal(t, 1, l.TurnsRemaining, "on-turn disconnect consumes the turn")
}

func TestUpdateStatsToStoreFlushesEverySeatedPlayer(t *testing.T) {
	flusher := newFakeFlusher()
	l := newTestLobby(FiveCardDraw, flusher, nil)
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 900, &recordingOutbound{})))
	require.NoError(t, l.AddPlayer(player.New("bob", "2", 1100, &recordingOutbound{})))

	l.UpdateStatsToStore(context.Background(), map[string]bool{"bob": true})

	flusher.mu.Lock()
	defer flusher.mu.Unlock()
	assert.Equal(t, 1, flusher.calls["alice"])
	assert.Equal(t, 1, flusher.calls["bob"])
}

func TestUpdateStatsToStoreNoopWithoutStore(t *testing.T) {
	l := newTestLobby(FiveCardDraw, nil, nil)
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 1000, &recordingOutbound{})))
	assert.NotPanics(t, func() { l.UpdateStatsToStore(context.Background(), nil) })
}

func TestAddAndRemoveSpectatorReceivesBroadcasts(t *testing.T) {
	l := newTestLobby(TexasHoldEm, nil, nil)
	out := &recordingOutbound{}
	spec := player.New("watcher", "w", 0, out)
	l.AddSpectator(spec)
	assert.Equal(t, player.Spectator, spec.State)

	l.BroadcastMessage("hello")
	msg, ok := out.last().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", msg["message"])

	l.RemoveSpectator("watcher")
	l.BroadcastMessage("goodbye")
	assert.Equal(t, "hello", out.last().(map[string]any)["message"], "a removed spectator stops receiving broadcasts")
}

func TestAddPlayerNotifiesDirectory(t *testing.T) {
	dir := &fakeNotifier{}
	l := newTestLobby(TexasHoldEm, nil, dir)
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 1000, &recordingOutbound{})))
	dir.mu.Lock()
	defer dir.mu.Unlock()
	require.NotEmpty(t, dir.changed)
	assert.Equal(t, "table", dir.changed[len(dir.changed)-1])
}

func TestBroadcastShowdownReachesSeatedPlayers(t *testing.T) {
	l := newTestLobby(TexasHoldEm, nil, nil)
	out := &recordingOutbound{}
	require.NoError(t, l.AddPlayer(player.New("alice", "1", 1000, out)))

	l.BroadcastShowdown([]ShowdownHand{{Name: "alice", HoleCards: []string{"AS", "KH"}, Winner: true}}, nil)

	frame, ok := out.last().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "showdownHands", frame["type"])
}
