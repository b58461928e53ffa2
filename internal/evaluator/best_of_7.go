package evaluator

import "github.com/lox/holdem-lobby/internal/deck"

// combinations5of7 lists the 21 index-subsets of size 5 out of 7, computed
// once at package init rather than generated per call.
var combinations5of7 = func() [][5]int {
	var out [][5]int
	var idx [5]int
	var choose func(start, depth int)
	choose = func(start, depth int) {
		if depth == 5 {
			out = append(out, idx)
			return
		}
		for i := start; i < 7; i++ {
			idx[depth] = i
			choose(i+1, depth+1)
		}
	}
	choose(0, 0)
	return out
}()

// BestOf7 evaluates every 5-of-7 subset of cards (face-up already; callers
// strip the Stud face-down offset first) and returns the best HandScore.
// Stable under permutation of the input.
func BestOf7(cards [7]deck.Card) HandScore {
	var best HandScore
	first := true
	for _, combo := range combinations5of7 {
		var hand [5]deck.Card
		for i, idx := range combo {
			hand[i] = cards[idx]
		}
		score := Score5(hand)
		if first || Compare(score, best) > 0 {
			best = score
			first = false
		}
	}
	return best
}
