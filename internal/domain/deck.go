package domain

import (
	"errors"
	"math/rand"
)

// ErrDeckExhausted is returned when drawing from an empty pile.
var ErrDeckExhausted = errors.New("no more cards in the deck")

// Deck owns the draw pile and the discard list for one round. It is
// regenerated at every round start, sized to the current player count.
type Deck struct {
	Cards    []*Card
	Discards []*Card
}

// NewDeck returns an empty deck; call Initialize before dealing.
func NewDeck() *Deck { return &Deck{} }

// Bound returns the face value bound used to generate the deck: 9 with two
// players, 10 otherwise.
func Bound(playerCount int) int {
	if playerCount == 2 {
		return 9
	}
	return 10
}

// Initialize regenerates the draw pile for the given player count and
// shuffles it with the provided source.
func (d *Deck) Initialize(playerCount int, rng *rand.Rand) {
	d.Generate(playerCount)
	d.Shuffle(rng)
}

// Generate produces one card per unordered pair (i, j) with 1 <= j < i <=
// bound, id "i-j" and faces [i, j]. The previous pile is dropped.
func (d *Deck) Generate(playerCount int) {
	bound := Bound(playerCount)
	d.Cards = make([]*Card, 0, bound*(bound-1)/2)
	d.Discards = nil
	for i := 2; i <= bound; i++ {
		for j := 1; j < i; j++ {
			d.Cards = append(d.Cards, NewCard(i, j))
		}
	}
}

// Shuffle flips each card with probability one half, then applies a random
// permutation to the pile.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for _, c := range d.Cards {
		if rng.Intn(2) == 0 {
			c.Reverse()
		}
	}
	rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// RandomDraw pops the top card of the shuffled pile.
func (d *Deck) RandomDraw() (*Card, error) {
	if len(d.Cards) == 0 {
		return nil, ErrDeckExhausted
	}
	c := d.Cards[len(d.Cards)-1]
	d.Cards = d.Cards[:len(d.Cards)-1]
	return c, nil
}

// DrawCard removes a specific card from the pile by id. Returns nil when the
// card is not in the pile.
func (d *Deck) DrawCard(id string) *Card {
	for i, c := range d.Cards {
		if c.ID == id {
			d.Cards = append(d.Cards[:i], d.Cards[i+1:]...)
			return c
		}
	}
	return nil
}

// DealQuota is the number of cards each player receives this round: an even
// split of the pile, dealt one short for the 2 and 4 player counts so a
// remainder stays in the deck.
func (d *Deck) DealQuota(playerCount int) int {
	if playerCount <= 0 {
		return 0
	}
	quota := len(d.Cards) / playerCount
	if playerCount == 2 || playerCount == 4 {
		quota--
	}
	return quota
}

// Size returns the number of cards left in the draw pile.
func (d *Deck) Size() int { return len(d.Cards) }
