package round

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
)

type nullOutbound struct{}

func (nullOutbound) Send(frame any) {}

func newDrawLobby(t *testing.T, names ...string) *lobby.Lobby {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	l := lobby.New("table", lobby.FiveCardDraw, rng, zerolog.Nop(), nil, nil)
	for _, name := range names {
		require.NoError(t, l.AddPlayer(player.New(name, name, 1000, nullOutbound{})))
	}
	l.Lock()
	l.SetupRound()
	l.Unlock()
	return l
}

// TestFoldDuringDrawEndsRoundWhenOneSeatRemains exercises the Draw-phase
// Fold path added alongside DrawCards: a fold that leaves at most one
// unfolded seat moves the round straight to SHOWDOWN.
func TestFoldDuringDrawEndsRoundWhenOneSeatRemains(t *testing.T) {
	l := newDrawLobby(t, "alice", "bob")
	c := &FiveCardDraw{L: l, Ctx: context.Background(), Logger: zerolog.Nop()}

	l.Lock()
	l.GameState = lobby.Draw
	l.TurnsRemaining = 1
	l.CurrentPlayerIndex = 0
	l.CurrentPlayerName = "alice"
	l.PlayerAt(1).State = player.Folded
	l.Unlock()

	require.NoError(t, c.Apply("alice", Action{Type: "Fold"}))

	assert.Equal(t, lobby.Showdown, l.GameState)
	assert.Equal(t, player.Folded, l.FindPlayer("alice").State)
}

// TestFoldDuringDrawContinuesToSecondBettingRound mirrors the DrawCards
// success path's phase transition when two seats remain live after one
// folds mid-draw.
func TestFoldDuringDrawContinuesToSecondBettingRound(t *testing.T) {
	l := newDrawLobby(t, "alice", "bob", "carol")
	c := &FiveCardDraw{L: l, Ctx: context.Background(), Logger: zerolog.Nop()}

	l.Lock()
	l.GameState = lobby.Draw
	l.TurnsRemaining = 1
	l.CurrentPlayerIndex = 0
	l.CurrentPlayerName = "alice"
	l.Unlock()

	require.NoError(t, c.Apply("alice", Action{Type: "Fold"}))

	assert.Equal(t, lobby.BettingRound, l.GameState)
	assert.Equal(t, 2, l.BettingRoundCounter)
	assert.Equal(t, player.Folded, l.FindPlayer("alice").State)
	assert.NotEqual(t, "alice", l.CurrentPlayerName)
}

func TestApplyRejectsActionFromOffTurnSeat(t *testing.T) {
	l := newDrawLobby(t, "alice", "bob")
	c := &FiveCardDraw{L: l, Ctx: context.Background(), Logger: zerolog.Nop()}

	offTurn := "alice"
	if l.CurrentPlayerName == "alice" {
		offTurn = "bob"
	}
	err := c.Apply(offTurn, Action{Type: "Check"})
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestApplyRejectsDrawCardsOutsideDrawPhase(t *testing.T) {
	l := newDrawLobby(t, "alice", "bob")
	c := &FiveCardDraw{L: l, Ctx: context.Background(), Logger: zerolog.Nop()}

	l.Lock()
	l.GameState = lobby.Ante
	l.Unlock()

	err := c.Apply(l.CurrentPlayerName, Action{Type: "DrawCards"})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestDrawCardsRejectsOutOfRangeIndices(t *testing.T) {
	l := newDrawLobby(t, "alice", "bob")
	c := &FiveCardDraw{L: l, Ctx: context.Background(), Logger: zerolog.Nop()}

	l.Lock()
	l.GameState = lobby.Draw
	l.Unlock()

	err := c.Apply(l.CurrentPlayerName, Action{Type: "DrawCards", Indices: []int{7}})
	assert.ErrorIs(t, err, ErrIllegalDraw)
}
