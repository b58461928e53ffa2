// Package round implements the per-variant round state machines for Five
// Card Draw, Seven Card Stud, and Texas Hold'em. All three variants share
// the betting-round completion rule (raises reset the turn counter) and
// showdown comparator; this file holds that shared core so each variant
// only needs to supply its own phase sequencing and dealing logic.
package round

import (
	"context"
	"errors"

	"github.com/lox/holdem-lobby/internal/deck"
	"github.com/lox/holdem-lobby/internal/evaluator"
	"github.com/lox/holdem-lobby/internal/lobby"
	"github.com/lox/holdem-lobby/internal/player"
)

var (
	ErrNotYourTurn     = errors.New("round: not your turn")
	ErrIllegalCheck    = errors.New("round: check not legal with a bet outstanding")
	ErrIllegalRaise    = errors.New("round: raise amount out of legal range")
	ErrIllegalDraw     = errors.New("round: draw indices out of range")
	ErrWrongPhase      = errors.New("round: action not valid in current phase")
	ErrUnknownAction   = errors.New("round: unrecognized action")
)

// Action is a parsed play action: Check, Fold, Call, Raise, AllIn, or
// (Five Card Draw only) DrawCards.
type Action struct {
	Type    string // Check, Fold, Call, Raise, AllIn, DrawCards
	Amount  int
	Indices []int
}

// Coordinator is the common interface a session drives:
// Step advances automatic (non-input) phase work one seat at a time;
// Apply validates and applies a play action from the named on-turn seat.
type Coordinator interface {
	// Step performs one unit of automatic work and reports whether the
	// round is now waiting on a player action (true) or finished and
	// should be torn down by the caller (false, when GameState==Joinable).
	Step() (awaitingAction bool)
	Apply(name string, a Action) error
}

// consumeTurn decrements turns_remaining by one and either advances the
// cursor to the next eligible seat or, when the phase's work is done,
// invokes onDone. skipAllIn controls whether all-in seats are skipped by
// the advance (true during betting phases).
func consumeTurn(l *lobby.Lobby, skipAllIn bool, onDone func()) {
	if l.TurnsRemaining > 0 {
		l.TurnsRemaining--
	}
	if l.TurnsRemaining == 0 {
		onDone()
		return
	}
	l.AdvanceTurn(false, skipAllIn)
}

// applyBettingAction applies Check/Fold/Call/Raise/AllIn uniformly across
// all three variants.
// onComplete is invoked (by consumeTurn) when turns_remaining reaches
// zero; each variant coordinator passes its own phase-transition function
// so this package stays variant-agnostic.
func applyBettingAction(l *lobby.Lobby, p *player.Player, a Action, onComplete func(*lobby.Lobby)) error {
	switch a.Type {
	case "Check":
		if l.CurrentMaxBet != 0 || p.CurrentBet != 0 {
			return ErrIllegalCheck
		}
		p.State = player.Checked
		consumeTurn(l, true, func() { onComplete(l) })
		return nil

	case "Fold":
		p.State = player.Folded
		// A fold that leaves one or zero seats standing decides the round
		// immediately rather than waiting for the survivor to also act -
		// matches the original's folded_count == current_player_count-1
		// check, taken before the turn cursor ever advances.
		if l.CheckEndGame() {
			l.GameState = lobby.Showdown
			return nil
		}
		consumeTurn(l, true, func() { onComplete(l) })
		return nil

	case "Call":
		toCall := l.CurrentMaxBet - p.CurrentBet
		if toCall < 0 {
			toCall = 0
		}
		if toCall >= p.Wallet {
			pay := p.Wallet
			p.Wallet = 0
			p.CurrentBet += pay
			l.Pot += pay
			p.State = player.AllIn
		} else {
			p.Wallet -= toCall
			p.CurrentBet += toCall
			l.Pot += toCall
			p.State = player.Called
		}
		consumeTurn(l, true, func() { onComplete(l) })
		return nil

	case "Raise":
		toCall := l.CurrentMaxBet - p.CurrentBet
		if !(a.Amount > toCall && a.Amount <= p.Wallet) {
			return ErrIllegalRaise
		}
		p.Wallet -= a.Amount
		p.CurrentBet += a.Amount
		l.Pot += a.Amount
		l.CurrentMaxBet = p.CurrentBet
		if p.Wallet == 0 {
			p.State = player.AllIn
		} else {
			p.State = player.Raised
		}
		l.TurnsRemaining = l.CurrentCount() - 1
		l.AdvanceTurn(false, true)
		return nil

	case "AllIn":
		amount := p.Wallet
		p.Wallet = 0
		p.CurrentBet += amount
		l.Pot += amount
		p.State = player.AllIn
		if p.CurrentBet > l.CurrentMaxBet {
			l.CurrentMaxBet = p.CurrentBet
			l.TurnsRemaining = l.CurrentCount() - 1
			l.AdvanceTurn(false, true)
		} else {
			consumeTurn(l, true, func() { onComplete(l) })
		}
		return nil

	default:
		return ErrUnknownAction
	}
}

// requireOnTurn enforces that only the seat named current_player_name may
// submit a play action; anything else is rejected at the coordinator.
func requireOnTurn(l *lobby.Lobby, name string) (*player.Player, error) {
	if l.CurrentPlayerName != name {
		return nil, ErrNotYourTurn
	}
	p := l.FindPlayer(name)
	if p == nil {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// showdown computes scores for every non-folded seat via scoreFn, finds
// the tied maximum, splits the pot among winners (remainder discarded),
// and credits wallets/games_won. Returns the set of winner names for
// UpdateStatsToStore.
func showdown(l *lobby.Lobby, scoreFn func(*player.Player) evaluator.HandScore) map[string]bool {
	type entry struct {
		p     *player.Player
		score evaluator.HandScore
	}
	var entries []entry
	for _, p := range l.Players() {
		if p.State == player.Folded {
			continue
		}
		entries = append(entries, entry{p, scoreFn(p)})
	}
	winners := map[string]bool{}
	if len(entries) == 0 {
		l.BroadcastGameInfo()
		return winners
	}
	best := entries[0].score
	for _, e := range entries[1:] {
		if evaluator.Compare(e.score, best) > 0 {
			best = e.score
		}
	}
	for _, e := range entries {
		if evaluator.Compare(e.score, best) == 0 {
			winners[e.p.Name] = true
		}
	}
	share := 0
	if len(winners) > 0 {
		share = l.Pot / len(winners)
		for _, e := range entries {
			if winners[e.p.Name] {
				e.p.Wallet += share
				e.p.GamesWon++
			}
		}
	}

	hands := make([]lobby.ShowdownHand, len(entries))
	for i, e := range entries {
		won := winners[e.p.Name]
		hands[i] = lobby.ShowdownHand{Name: e.p.Name, HoleCards: cardStrings(e.p.Hand), Winner: won}
		if won {
			hands[i].Share = share
		}
	}
	l.BroadcastGameInfo()
	l.BroadcastShowdown(hands, cardStrings(l.CommunityCards))
	return winners
}

func stripFaceDown(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, len(cards))
	for i, c := range cards {
		out[i] = c.FaceUp()
	}
	return out
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.FaceUp().String()
	}
	return out
}

func to5(cards []deck.Card) [5]deck.Card {
	var h [5]deck.Card
	copy(h[:], cards)
	return h
}

func to7(cards []deck.Card) [7]deck.Card {
	var h [7]deck.Card
	copy(h[:], cards)
	return h
}

// finishRound runs UPDATE_STORE: flush stats, clear per-round player
// fields, unseat anyone who disconnected mid-round, and return the lobby
// to JOINABLE.
func finishRound(ctx context.Context, l *lobby.Lobby, winners map[string]bool) {
	l.GameState = lobby.UpdateStore
	l.UpdateStatsToStore(ctx, winners)
	var departed []string
	for _, p := range l.Players() {
		p.ResetForNewRound()
		if p.Disconnected {
			departed = append(departed, p.Name)
		}
	}
	l.Pot = 0
	l.CommunityCards = nil
	l.CurrentMaxBet = 0
	l.GameState = lobby.Joinable
	for _, name := range departed {
		l.RemovePlayer(name)
	}
	l.BroadcastGameInfo()
}
