package deck

import "math/rand"

// Deck is the ordered 52-card sequence a round deals from. The zero value
// is not usable; construct with New.
type Deck struct {
	cards  [52]Card
	cursor int
}

// New returns a fresh, unshuffled deck [0, 1, ..., 51] with the cursor at 0.
func New() *Deck {
	d := &Deck{}
	for i := range d.cards {
		d.cards[i] = Card(i)
	}
	return d
}

// Shuffle performs a uniform Fisher-Yates permutation using rng and resets
// the cursor to 0. No reshuffle may happen mid-round (enforced by callers:
// Lobby.SetupRound is the only caller).
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	d.cursor = 0
}

// Deal returns the card at the cursor and advances it. ok is false once the
// cursor has reached 52; callers must not deal more cards than the variant
// allows in a round.
func (d *Deck) Deal() (card Card, ok bool) {
	if d.cursor >= len(d.cards) {
		return 0, false
	}
	c := d.cards[d.cursor]
	d.cursor++
	return c, true
}

// Remaining reports how many cards are left to deal.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.cursor
}
