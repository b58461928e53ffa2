package round

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lox/holdem-lobby/internal/deck"
	"github.com/lox/holdem-lobby/internal/evaluator"
	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
)

// studDealSchedule describes how many face-up and face-down cards each
// seat gets per deal round: round 1 is two down + one up; rounds 2-4 are
// one up each; round 5 is one down.
var studDealSchedule = []struct{ down, up int }{
	{2, 1},
	{0, 1},
	{0, 1},
	{0, 1},
	{1, 0},
}

// SevenCardStud runs five deal/bet rounds with a BRING_IN phase after the
// first deal, then a best-of-7 showdown.
type SevenCardStud struct {
	L      *lobby.Lobby
	Ctx    context.Context
	Logger zerolog.Logger

	// dealsDone counts how many of the five scheduled deal rounds have
	// fully completed. stepDeal always deals studDealSchedule[dealsDone].
	dealsDone int
}

var _ Coordinator = (*SevenCardStud)(nil)

func (c *SevenCardStud) Step() bool {
	l := c.L
	switch l.GameState {
	case lobby.StartOfRound:
		c.dealsDone = 0
		l.GameState = lobby.DealCards
		return false

	case lobby.DealCards:
		c.stepDeal()
		return false

	case lobby.BringIn:
		c.applyBringIn()
		return false

	case lobby.BettingRound:
		return true

	case lobby.Showdown:
		winners := showdown(l, func(p *player.Player) evaluator.HandScore {
			return evaluator.BestOf7(to7(stripFaceDown(p.Hand)))
		})
		finishRound(c.Ctx, l, winners)
		return false

	default:
		return false
	}
}

func (c *SevenCardStud) stepDeal() {
	l := c.L
	schedule := studDealSchedule[c.dealsDone]
	p := l.FindPlayer(l.CurrentPlayerName)
	if p != nil && p.State != player.Folded {
		for i := 0; i < schedule.down; i++ {
			if card, ok := l.Deck.Deal(); ok {
				p.Hand = append(p.Hand, card.FaceDown())
			}
		}
		for i := 0; i < schedule.up; i++ {
			if card, ok := l.Deck.Deal(); ok {
				p.Hand = append(p.Hand, card)
			}
		}
	}
	l.AdvanceTurn(false, false)

	want := 0
	for i := 0; i <= c.dealsDone; i++ {
		want += studDealSchedule[i].down + studDealSchedule[i].up
	}
	remaining := 0
	for _, pl := range l.Players() {
		if pl.State != player.Folded && len(pl.Hand) < want {
			remaining++
		}
	}
	if remaining > 0 {
		l.TurnsRemaining = remaining
		return
	}

	justFinished := c.dealsDone
	c.dealsDone++
	if justFinished == 0 {
		l.GameState = lobby.BringIn
		return
	}
	l.AdvanceTurn(true, true)
	l.GameState = lobby.BettingRound
	l.BettingRoundCounter = justFinished + 1
	l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
}

// applyBringIn selects the seat with the lowest face-up card after the
// first deal (ties broken Spades < Hearts < Diamonds < Clubs), charges
// the fixed bring-in, and opens the first betting round with that seat
// acting first.
func (c *SevenCardStud) applyBringIn() {
	l := c.L
	suitOrder := map[int]int{deck.Spades: 0, deck.Hearts: 1, deck.Diamonds: 2, deck.Clubs: 3}

	lowSeat := -1
	lowRank, lowSuitRank := 0, 0
	for i, p := range l.Players() {
		if p.State == player.Folded || len(p.Hand) == 0 {
			continue
		}
		upCard := p.Hand[len(p.Hand)-1] // the single face-up card dealt in round 1
		r := upCard.RankValue()
		sr := suitOrder[upCard.Suit()]
		if lowSeat == -1 || r < lowRank || (r == lowRank && sr < lowSuitRank) {
			lowSeat, lowRank, lowSuitRank = i, r, sr
		}
	}
	if lowSeat == -1 {
		l.GameState = lobby.BettingRound
		l.BettingRoundCounter = 1
		l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
		return
	}

	p := l.PlayerAt(lowSeat)
	pay := lobby.BringIn15
	if pay > p.Wallet {
		pay = p.Wallet
	}
	p.Wallet -= pay
	p.CurrentBet += pay
	l.Pot += pay
	l.CurrentMaxBet = p.CurrentBet
	if p.Wallet == 0 {
		p.State = player.AllIn
	} else {
		p.State = player.Called
	}

	l.FirstBettingPlayer = lowSeat
	l.CurrentPlayerIndex = lowSeat
	l.CurrentPlayerName = p.Name
	l.GameState = lobby.BettingRound
	l.BettingRoundCounter = 1
	l.TurnsRemaining = len(l.ActiveNonFoldedNonAllIn())
}

func (c *SevenCardStud) Apply(name string, a Action) error {
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

func (c *SevenCardStud) onBettingRoundDone(l *lobby.Lobby) {
	l.ClearBetting()
	l.AdvanceTurn(true, true)
	if l.CheckEndGame() {
		l.GameState = lobby.Showdown
		return
	}
	if c.dealsDone >= len(studDealSchedule) {
		l.GameState = lobby.Showdown
		return
	}
	l.GameState = lobby.DealCards
}
