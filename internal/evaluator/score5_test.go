package evaluator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-lobby/internal/deck"
)

func hand(cards ...deck.Card) [5]deck.Card {
	var h [5]deck.Card
	copy(h[:], cards)
	return h
}

// c builds a Card from a suit (0 Hearts,1 Diamonds,2 Spades,3 Clubs) and a
// rank (0 Ace, 1..9 2..10, 10 J, 11 Q, 12 K).
func c(suit, rank int) deck.Card {
	return deck.Card(suit*deck.NumRanks + rank)
}

func TestStraightFlush(t *testing.T) {
	h := hand(c(0, 9), c(0, 10), c(0, 11), c(0, 12), c(0, 0)) // 10-J-Q-K-A hearts
	s := Score5(h)
	assert.Equal(t, StraightFlush, s.Category)
	assert.Equal(t, 13, s.K1) // Ace high
}

func TestFourOfAKind(t *testing.T) {
	h := hand(c(0, 1), c(1, 1), c(2, 1), c(3, 1), c(0, 5))
	s := Score5(h)
	assert.Equal(t, FourOfAKind, s.Category)
	assert.Equal(t, 1, s.K1) // rank index 1 ("2") has RankValue 1
}

func TestFullHouse(t *testing.T) {
	h := hand(c(0, 1), c(1, 1), c(2, 1), c(3, 5), c(0, 5))
	s := Score5(h)
	assert.Equal(t, FullHouse, s.Category)
}

func TestFlushBeatsStraight(t *testing.T) {
	flush := Score5(hand(c(0, 1), c(0, 3), c(0, 5), c(0, 7), c(0, 9)))
	straight := Score5(hand(c(0, 1), c(1, 2), c(2, 3), c(3, 4), c(0, 5)))
	assert.True(t, Compare(flush, straight) > 0)
}

func TestNoWheelStraight(t *testing.T) {
	// A-2-3-4-5 is NOT recognized as a straight.
	h := hand(c(0, 0), c(1, 1), c(2, 2), c(3, 3), c(0, 4)) // A,2,3,4,5
	s := Score5(h)
	assert.NotEqual(t, Straight, s.Category)
	assert.Equal(t, HighCard, s.Category)
}

func TestScore5PermutationInvariant(t *testing.T) {
	base := []deck.Card{c(0, 1), c(1, 1), c(2, 9), c(3, 5), c(0, 11)}
	want := Score5(hand(base...))
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		perm := append([]deck.Card(nil), base...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		got := Score5(hand(perm...))
		require.Equal(t, want, got)
	}
}

func TestBestOf7StableUnderPermutation(t *testing.T) {
	cards := [7]deck.Card{c(0, 1), c(1, 1), c(2, 1), c(3, 9), c(0, 9), c(1, 5), c(2, 2)}
	want := BestOf7(cards)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 10; i++ {
		perm := cards
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		require.Equal(t, want, BestOf7(perm))
	}
}

func TestBestOf7PicksBestFive(t *testing.T) {
	// Four aces plus three junk cards: best hand must be quads, not a flush
	// accidentally formed from the junk.
	cards := [7]deck.Card{c(0, 0), c(1, 0), c(2, 0), c(3, 0), c(0, 5), c(1, 7), c(2, 9)}
	s := BestOf7(cards)
	assert.Equal(t, FourOfAKind, s.Category)
}
