package evaluator

import (
	"sort"

	"github.com/lox/holdem-lobby/internal/deck"
)

// Score5 ranks a five-card hand, testing from StraightFlush down to
// HighCard and returning the first match. Ace is always rank 13
// (RankValue); wheel straights (A-2-3-4-5) are not recognized.
func Score5(cards [5]deck.Card) HandScore {
	ranks := make([]int, 5)
	for i, c := range cards {
		ranks[i] = c.RankValue()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	counts := countRanks(ranks)
	flush := isFlush(cards)
	straightHigh := straightHigh(ranks)

	if flush && straightHigh > 0 {
		return HandScore{Category: StraightFlush, K1: straightHigh}
	}
	if quad, kicker, ok := findQuad(counts); ok {
		return HandScore{Category: FourOfAKind, K1: quad, K2: kicker}
	}
	if trip, pair, ok := findFullHouse(counts); ok {
		return HandScore{Category: FullHouse, K1: trip, K2: pair}
	}
	if flush {
		return HandScore{Category: Flush, K1: ranks[0], K2: ranks[1], K3: ranks[2], K4: ranks[3], K5: ranks[4]}
	}
	if straightHigh > 0 {
		return HandScore{Category: Straight, K1: straightHigh}
	}
	if trip, k1, k2, ok := findTrips(counts); ok {
		return HandScore{Category: ThreeOfAKind, K1: trip, K2: k1, K3: k2}
	}
	if hi, lo, kicker, ok := findTwoPair(counts); ok {
		return HandScore{Category: TwoPair, K1: hi, K2: lo, K3: kicker}
	}
	if pair, k1, k2, k3, ok := findOnePair(counts); ok {
		return HandScore{Category: OnePair, K1: pair, K2: k1, K3: k2, K4: k3}
	}
	return HandScore{Category: HighCard, K1: ranks[0], K2: ranks[1], K3: ranks[2], K4: ranks[3], K5: ranks[4]}
}

// rankCounts maps RankValue (1..13) to how many of the five cards hold it.
type rankCounts map[int]int

func countRanks(descRanks []int) rankCounts {
	c := make(rankCounts, 5)
	for _, r := range descRanks {
		c[r]++
	}
	return c
}

func isFlush(cards [5]deck.Card) bool {
	suit := cards[0].Suit()
	for _, c := range cards[1:] {
		if c.Suit() != suit {
			return false
		}
	}
	return true
}

// straightHigh returns the high rank of a 5-consecutive-rank run among
// descRanks (which may contain duplicates from pairs/trips, but a straight
// requires five distinct consecutive ranks), or 0 if none.
func straightHigh(descRanks []int) int {
	distinct := make([]int, 0, 5)
	seen := make(map[int]bool)
	for _, r := range descRanks {
		if !seen[r] {
			seen[r] = true
			distinct = append(distinct, r)
		}
	}
	if len(distinct) != 5 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(distinct)))
	for i := 0; i < 4; i++ {
		if distinct[i]-distinct[i+1] != 1 {
			return 0
		}
	}
	return distinct[0]
}

func findQuad(c rankCounts) (quad, kicker int, ok bool) {
	for r, n := range c {
		if n == 4 {
			quad = r
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	for r := range c {
		if r != quad {
			kicker = r
		}
	}
	return quad, kicker, true
}

func findFullHouse(c rankCounts) (trip, pair int, ok bool) {
	trip = highestWithCount(c, 3)
	if trip == 0 {
		return 0, 0, false
	}
	best := 0
	for r, n := range c {
		if r == trip {
			continue
		}
		if n >= 2 && r > best {
			best = r
		}
	}
	if best == 0 {
		return 0, 0, false
	}
	return trip, best, true
}

func findTrips(c rankCounts) (trip, k1, k2 int, ok bool) {
	trip = highestWithCount(c, 3)
	if trip == 0 {
		return 0, 0, 0, false
	}
	kickers := kickersExcluding(c, trip, 2)
	return trip, kickers[0], kickers[1], true
}

func findTwoPair(c rankCounts) (hi, lo, kicker int, ok bool) {
	var pairs []int
	for r, n := range c {
		if n == 2 {
			pairs = append(pairs, r)
		}
	}
	if len(pairs) < 2 {
		return 0, 0, 0, false
	}
	sort.Sort(sort.Reverse(sort.IntSlice(pairs)))
	hi, lo = pairs[0], pairs[1]
	for r := range c {
		if r != hi && r != lo {
			if r > kicker {
				kicker = r
			}
		}
	}
	return hi, lo, kicker, true
}

func findOnePair(c rankCounts) (pair, k1, k2, k3 int, ok bool) {
	pair = highestWithCount(c, 2)
	if pair == 0 {
		return 0, 0, 0, 0, false
	}
	kickers := kickersExcluding(c, pair, 3)
	return pair, kickers[0], kickers[1], kickers[2], true
}

func highestWithCount(c rankCounts, n int) int {
	best := 0
	for r, cnt := range c {
		if cnt == n && r > best {
			best = r
		}
	}
	return best
}

// kickersExcluding returns the n highest ranks in c other than exclude,
// one entry per card held (a rank with count 2 contributes it twice).
func kickersExcluding(c rankCounts, exclude, n int) []int {
	var all []int
	for r, cnt := range c {
		if r == exclude {
			continue
		}
		for i := 0; i < cnt; i++ {
			all = append(all, r)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(all)))
	for len(all) < n {
		all = append(all, 0)
	}
	return all[:n]
}
