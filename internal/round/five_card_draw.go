package round

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/evaluator"
	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
)

// FiveCardDraw runs the ante-draw-showdown cycle:
// START_OF_ROUND -> ANTE -> DEAL_CARDS -> BETTING_ROUND(1) -> DRAW ->
// BETTING_ROUND(2) -> SHOWDOWN -> UPDATE_STORE -> JOINABLE.
type FiveCardDraw struct {
	L      *lobby.Lobby
	Ctx    context.Context
	Logger zerolog.Logger
}

var _ Coordinator = (*FiveCardDraw)(nil)

func (c *FiveCardDraw) Step() bool {
	l := c.L
	switch l.GameState {
	case lobby.StartOfRound:
		l.GameState = lobby.Ante
		return false

	case lobby.Ante:
		p := l.FindPlayer(l.CurrentPlayerName)
		if p != nil {
			if p.Wallet > lobby.Ante10 {
				p.Wallet -= lobby.Ante10
				l.Pot += lobby.Ante10
				p.GamesPlayed++
			} else {
				p.State = player.Folded
			}
		}
		consumeTurn(l, false, func() {
			if l.CheckEndGame() {
				l.GameState = lobby.Showdown
				return
			}
			l.TurnsRemaining = l.CurrentCount()
			l.AdvanceTurn(true, false)
			l.GameState = lobby.DealCards
		})
		return false

	case lobby.DealCards:
		c.stepDeal()
		return false

	case lobby.BettingRound:
		return true // awaiting a player action via Apply

	case lobby.Draw:
		return true // awaiting DrawCards via Apply

	case lobby.Showdown:
		winners := showdown(l, func(p *player.Player) evaluator.HandScore {
			return evaluator.Score5(to5(p.Hand))
		})
		finishRound(c.Ctx, l, winners)
		return false

	default:
		return false
	}
}

func (c *FiveCardDraw) stepDeal() {
	l := c.L
	p := l.FindPlayer(l.CurrentPlayerName)
	if p != nil && p.State != player.Folded && len(p.Hand) < 5 {
		if card, ok := l.Deck.Deal(); ok {
			p.Hand = append(p.Hand, card)
		}
	}
	l.AdvanceTurn(false, false)

	remaining := 0
	for _, pl := range l.Players() {
		if pl.State != player.Folded && len(pl.Hand) < 5 {
			remaining++
		}
	}
	l.TurnsRemaining = remaining
	if remaining == 0 {
		l.AdvanceTurn(true, false)
		l.GameState = lobby.BettingRound
		l.BettingRoundCounter = 1
		l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
	}
}

func (c *FiveCardDraw) Apply(name string, a Action) error {
	l := c.L
	p, err := requireOnTurn(l, name)
	if err != nil {
		return err
	}

	switch l.GameState {
	case lobby.BettingRound:
		return applyBettingAction(l, p, a, c.onBettingRoundDone)

	case lobby.Draw:
		switch a.Type {
		case "DrawCards":
			for _, idx := range a.Indices {
				if idx < 0 || idx >= len(p.Hand) {
					return ErrIllegalDraw
				}
			}
			for _, idx := range a.Indices {
				if card, ok := l.Deck.Deal(); ok {
					p.Hand[idx] = card
				}
			}
			// Broadcasting how many cards were exchanged (not which ones)
			// is the session layer's job, since it knows the per-player
			// view; the coordinator only mutates state here.
			consumeTurn(l, true, func() { c.onDrawDone(l) })
			return nil

		case "Fold":
			p.State = player.Folded
			if l.CheckEndGame() {
				l.GameState = lobby.Showdown
				return nil
			}
			consumeTurn(l, true, func() { c.onDrawDone(l) })
			return nil

		default:
			return ErrWrongPhase
		}

	default:
		return ErrWrongPhase
	}
}

func (c *FiveCardDraw) onDrawDone(l *lobby.Lobby) {
	if l.CheckEndGame() {
		l.GameState = lobby.Showdown
		return
	}
	l.GameState = lobby.BettingRound
	l.BettingRoundCounter = 2
	l.AdvanceTurn(true, true)
	l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
}

func (c *FiveCardDraw) onBettingRoundDone(l *lobby.Lobby) {
	l.ClearBetting()
	l.AdvanceTurn(true, true)
	if l.CheckEndGame() {
		l.GameState = lobby.Showdown
		return
	}
	if l.BettingRoundCounter == 1 {
		l.GameState = lobby.Draw
		l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
	} else {
		l.GameState = lobby.Showdown
	}
}
