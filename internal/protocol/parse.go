package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/lox/holdem-lobby/internal/round"
)

// ParsePlayAction decodes a play-phase InboundFrame into a round.Action.
// The caller is expected to have already recognized frame.Action as one of
// the play tags (Check, Fold, Call, Raise, AllIn, DrawCards).
func ParsePlayAction(frame InboundFrame) (round.Action, error) {
	switch frame.Action {
	case ActionCheck, ActionFold, ActionCall, ActionAllIn:
		return round.Action{Type: frame.Action}, nil

	case ActionRaise:
		var d RaiseData
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &d); err != nil {
				return round.Action{}, fmt.Errorf("protocol: decode raise data: %w", err)
			}
		}
		return round.Action{Type: ActionRaise, Amount: d.Amount}, nil

	case ActionDrawCards:
		var d DrawCardsData
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &d); err != nil {
				return round.Action{}, fmt.Errorf("protocol: decode draw cards data: %w", err)
			}
		}
		return round.Action{Type: ActionDrawCards, Indices: d.Indices}, nil

	default:
		return round.Action{}, fmt.Errorf("protocol: %q is not a play action", frame.Action)
	}
}

// IsPlayAction reports whether tag names one of the six play actions a
// RoundCoordinator consumes, as opposed to a lobby-management action.
func IsPlayAction(tag string) bool {
	switch tag {
	case ActionCheck, ActionFold, ActionCall, ActionRaise, ActionAllIn, ActionDrawCards:
		return true
	default:
		return false
	}
}
