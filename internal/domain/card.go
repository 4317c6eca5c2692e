package domain

import "fmt"

// CardState tracks where a card currently lives.
type CardState string

const (
	CardInDeck  CardState = "in_deck"
	CardInHand  CardState = "in_hand"
	CardOnTable CardState = "on_table"
)

// Card is a two-faced Jouer playing token. Identity (ID) is fixed at deck
// generation; orientation and ownership change as the card moves between the
// deck, hands and the table. Cards are never destroyed: the table holds the
// last played group until it is eaten or borrowed away.
type Card struct {
	ID     string
	Values [2]int
	Owner  string // player id, empty while unowned
	State  CardState
}

// NewCard builds a card whose id encodes both face values.
func NewCard(front, back int) *Card {
	return &Card{
		ID:     fmt.Sprintf("%d-%d", front, back),
		Values: [2]int{front, back},
		State:  CardInDeck,
	}
}

// Value returns the active (face-up) value.
func (c *Card) Value() int { return c.Values[0] }

// Reverse flips the card, swapping which face is up.
func (c *Card) Reverse() {
	c.Values[0], c.Values[1] = c.Values[1], c.Values[0]
}

// FaceSum is the sum of both faces, independent of orientation.
func (c *Card) FaceSum() int { return c.Values[0] + c.Values[1] }
