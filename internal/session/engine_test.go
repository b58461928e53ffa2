package session

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
	"github.com/lox/holdem-lobby/internal/round"
)

type collectingConn struct {
	mu     sync.Mutex
	frames []any
}

func (c *collectingConn) Send(frame any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
}

func waitForTurn(t *testing.T, l *lobby.Lobby, state lobby.GameState, name string) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.Lock()
		defer l.Unlock()
		return l.GameState == state && l.CurrentPlayerName == name
	}, 2*time.Second, 5*time.Millisecond, "never reached %v for %s", state, name)
}

// TestEngineDrivesFullFiveCardDrawRound scripts two seats through ante,
// deal, both betting rounds (checking throughout), and a no-card draw,
// then asserts the round lands back on JOINABLE with every chip accounted
// for, without the test needing to predict which hand wins.
func TestEngineDrivesFullFiveCardDrawRound(t *testing.T) {
	logger := zerolog.Nop()
	rng := rand.New(rand.NewSource(1))
	l := lobby.New("table", lobby.FiveCardDraw, rng, logger, nil, nil)

	alice := player.New("alice", "2", 1000, &collectingConn{})
	bob := player.New("bob", "1", 1000, &collectingConn{})
	require.NoError(t, l.AddPlayer(alice))
	require.NoError(t, l.AddPlayer(bob))

	l.Lock()
	l.SetupRound()
	l.Unlock()

	router := NewActionRouter()
	router.Register("bob")
	router.Register("alice")
	defer router.Unregister("bob")
	defer router.Unregister("alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := &LobbyEngine{L: l, Router: router, Ctx: ctx, Logger: logger}
	done := make(chan struct{})
	go func() {
		engine.Run()
		close(done)
	}()

	waitForTurn(t, l, lobby.BettingRound, "bob")
	require.True(t, router.Deliver("bob", round.Action{Type: "Check"}))
	waitForTurn(t, l, lobby.BettingRound, "alice")
	require.True(t, router.Deliver("alice", round.Action{Type: "Check"}))

	waitForTurn(t, l, lobby.Draw, "bob")
	require.True(t, router.Deliver("bob", round.Action{Type: "DrawCards"}))
	waitForTurn(t, l, lobby.Draw, "alice")
	require.True(t, router.Deliver("alice", round.Action{Type: "DrawCards"}))

	waitForTurn(t, l, lobby.BettingRound, "bob")
	require.True(t, router.Deliver("bob", round.Action{Type: "Check"}))
	waitForTurn(t, l, lobby.BettingRound, "alice")
	require.True(t, router.Deliver("alice", round.Action{Type: "Check"}))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("engine never finished the round")
	}

	assert.Equal(t, lobby.Joinable, l.GameState)
	assert.Equal(t, 0, l.Pot)
	assert.Equal(t, 2000, bob.Wallet+alice.Wallet)
}

// TestEngineFoldsDisconnectedOnTurnSeat confirms a seat with no registered
// action channel (simulating a dropped connection) is folded rather than
// stalling the round forever.
func TestEngineFoldsDisconnectedOnTurnSeat(t *testing.T) {
	logger := zerolog.Nop()
	rng := rand.New(rand.NewSource(2))
	l := lobby.New("table", lobby.FiveCardDraw, rng, logger, nil, nil)

	alice := player.New("alice", "2", 1000, &collectingConn{})
	bob := player.New("bob", "1", 1000, &collectingConn{})
	require.NoError(t, l.AddPlayer(alice))
	require.NoError(t, l.AddPlayer(bob))

	l.Lock()
	l.SetupRound()
	l.Unlock()

	router := NewActionRouter()
	router.Register("alice") // bob's channel is never registered, simulating a dropped connection
	defer router.Unregister("alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := &LobbyEngine{L: l, Router: router, Ctx: ctx, Logger: logger}
	done := make(chan struct{})
	go func() {
		engine.Run()
		close(done)
	}()

	// bob is first to act (first_betting_player) and has no channel, so the
	// engine auto-folds him; that leaves alice as the sole active seat, so
	// the fold itself ends the round at showdown without alice needing to
	// act.
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("engine never finished the round")
	}

	assert.Equal(t, lobby.Joinable, l.GameState)
	assert.Equal(t, player.Folded, bob.State)
	assert.True(t, bob.Disconnected)
}
