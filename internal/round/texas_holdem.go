package round

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/deck"
	"github.com/lox/holdem-lobby/internal/evaluator"
	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
)

// communitySchedule gives the number of community cards dealt in each of
// the three post-flop deal rounds: the flop (3), the turn (1), the river
// (1). Round 0 (the first DEAL_CARDS phase) deals two hole cards per seat
// instead and is handled separately.
var communitySchedule = []int{3, 1, 1}

// TexasHoldEm runs four betting rounds around shared community cards:
// START_OF_ROUND -> SMALL_AND_BIG_BLIND -> DEAL_CARDS(hole) ->
// BETTING_ROUND -> DEAL_CARDS(flop) -> BETTING_ROUND -> DEAL_CARDS(turn)
// -> BETTING_ROUND -> DEAL_CARDS(river) -> BETTING_ROUND -> SHOWDOWN.
type TexasHoldEm struct {
	L      *lobby.Lobby
	Ctx    context.Context
	Logger zerolog.Logger

	// dealRound indexes the current deal phase: 0 for hole cards, 1 for
	// the flop, 2 for the turn, 3 for the river. It is bumped when the
	// betting round that follows a deal completes.
	dealRound int
}

var _ Coordinator = (*TexasHoldEm)(nil)

func (c *TexasHoldEm) Step() bool {
	l := c.L
	switch l.GameState {
	case lobby.StartOfRound:
		c.dealRound = 0
		l.GameState = lobby.Blinds
		return false

	case lobby.Blinds:
		c.postBlinds()
		return false

	case lobby.DealCards:
		c.stepDeal()
		return false

	case lobby.BettingRound:
		return true

	case lobby.Showdown:
		winners := showdown(l, func(p *player.Player) evaluator.HandScore {
			hole := stripFaceDown(p.Hand)
			all := append(append([]deck.Card{}, hole...), l.CommunityCards...)
			return evaluator.BestOf7(to7(all))
		})
		finishRound(c.Ctx, l, winners)
		return false

	default:
		return false
	}
}

// postBlinds charges the small and big blind to the two seats following
// first_betting_player, sets current_max_bet to the big blind, and
// advances first_betting_player by three seats for next round's cursor.
func (c *TexasHoldEm) postBlinds() {
	l := c.L
	count := l.CurrentCount()
	if count == 0 {
		l.GameState = lobby.Showdown
		return
	}

	sbIdx := (l.FirstBettingPlayer + 1) % count
	bbIdx := (l.FirstBettingPlayer + 2) % count

	post := func(idx int, amount int) {
		p := l.PlayerAt(idx)
		if p == nil {
			return
		}
		pay := amount
		if pay > p.Wallet {
			pay = p.Wallet
		}
		p.Wallet -= pay
		p.CurrentBet += pay
		l.Pot += pay
		if p.Wallet == 0 {
			p.State = player.AllIn
		} else {
			p.State = player.Called
		}
	}
	post(sbIdx, lobby.SmallBlind5)
	post(bbIdx, lobby.BigBlind10)
	l.CurrentMaxBet = lobby.BigBlind10

	l.FirstBettingPlayer = (l.FirstBettingPlayer + 3) % count
	l.CurrentPlayerIndex = l.FirstBettingPlayer
	l.CurrentPlayerName = ""
	if p := l.PlayerAt(l.FirstBettingPlayer); p != nil {
		l.CurrentPlayerName = p.Name
	}
	l.AdvanceTurn(true, true)

	l.GameState = lobby.DealCards
	l.DealCardCounter = 0
}

func (c *TexasHoldEm) stepDeal() {
	if c.dealRound == 0 {
		c.stepDealHole()
		return
	}
	c.dealCommunity()
}

func (c *TexasHoldEm) stepDealHole() {
	l := c.L
	p := l.FindPlayer(l.CurrentPlayerName)
	if p != nil && p.State != player.Folded {
		for i := 0; i < 2; i++ {
			if card, ok := l.Deck.Deal(); ok {
				p.Hand = append(p.Hand, card)
			}
		}
	}
	l.AdvanceTurn(false, false)

	remaining := 0
	for _, pl := range l.Players() {
		if pl.State != player.Folded && len(pl.Hand) < 2 {
			remaining++
		}
	}
	l.TurnsRemaining = remaining
	if remaining == 0 {
		l.AdvanceTurn(true, true)
		l.GameState = lobby.BettingRound
		l.BettingRoundCounter = 1
		l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
	}
}

// dealCommunity deals the whole flop/turn/river in a single step, since
// community cards are shared rather than dealt seat by seat, then clears
// betting and opens the next round's betting phase with the cursor reset
// to first_betting_player.
func (c *TexasHoldEm) dealCommunity() {
	l := c.L
	n := communitySchedule[c.dealRound-1]
	for i := 0; i < n; i++ {
		if card, ok := l.Deck.Deal(); ok {
			l.CommunityCards = append(l.CommunityCards, card)
		}
	}
	l.ClearBetting()
	l.AdvanceTurn(true, true)
	l.GameState = lobby.BettingRound
	l.BettingRoundCounter = c.dealRound + 1
	l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
}

func (c *TexasHoldEm) Apply(name string, a Action) error {
	l := c.L
	p, err := requireOnTurn(l, name)
	if err != nil {
		return err
	}
	if l.GameState != lobby.BettingRound {
		return ErrWrongPhase
	}
	return applyBettingAction(l, p, a, c.onBettingRoundDone)
}

func (c *TexasHoldEm) onBettingRoundDone(l *lobby.Lobby) {
	l.ClearBetting()
	l.AdvanceTurn(true, true)
	if l.CheckEndGame() {
		l.GameState = lobby.Showdown
		return
	}
	c.dealRound++
	if c.dealRound > len(communitySchedule) {
		l.GameState = lobby.Showdown
		return
	}
	l.GameState = lobby.DealCards
}
