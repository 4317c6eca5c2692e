package domain

import "strings"

// PlayerStatus is the table-talk emote shown next to a player.
type PlayerStatus string

const (
	StatusDefault  PlayerStatus = "default"
	StatusThinking PlayerStatus = "thinking"
	StatusLaughing PlayerStatus = "laughing"
	StatusCrying   PlayerStatus = "crying"
)

// MaxPlayerNameLen bounds display names on the wire.
const MaxPlayerNameLen = 12

// DefaultJouerAllowance is the per-round budget for the jouer action.
const DefaultJouerAllowance = 3

// Player holds per-participant state. Hand order is semantically significant:
// only groups adjacent in this order may be played together, and borrowed
// cards are inserted at a caller-chosen position to keep that property useful.
type Player struct {
	ID            string
	Name          string
	Hand          []*Card
	Eaten         []*Card
	Score         int
	BorrowedCount int
	JouerCount    int
	Status        PlayerStatus
	Ready         bool
	BorrowingCard *Card // pending offer awaiting acknowledgement
	LastAction    string
}

// NewPlayer creates a player with a validated display name.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:     id,
		Name:   validateName(name),
		Status: StatusDefault,
	}
}

func validateName(name string) string {
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > MaxPlayerNameLen {
		return string(runes[:MaxPlayerNameLen])
	}
	return name
}

// ResetForRound clears round-local state ahead of a new deal.
func (p *Player) ResetForRound() {
	p.Hand = nil
	p.Eaten = nil
	p.Score = 0
	p.BorrowedCount = 0
	p.JouerCount = DefaultJouerAllowance
	p.Status = StatusDefault
	p.BorrowingCard = nil
	p.LastAction = ""
}

// AddCard appends a dealt card to the hand and claims ownership.
func (p *Player) AddCard(c *Card) {
	c.Owner = p.ID
	c.State = CardInHand
	p.Hand = append(p.Hand, c)
}

// InsertCard places a card at idx in the hand, clamping out-of-range targets.
func (p *Player) InsertCard(idx int, c *Card) {
	c.Owner = p.ID
	c.State = CardInHand
	if idx < 0 {
		idx = 0
	}
	if idx > len(p.Hand) {
		idx = len(p.Hand)
	}
	p.Hand = append(p.Hand, nil)
	copy(p.Hand[idx+1:], p.Hand[idx:])
	p.Hand[idx] = c
}

// HandIndex returns the position of the card with the given id, or -1.
func (p *Player) HandIndex(id string) int {
	for i, c := range p.Hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// RemoveRange detaches the contiguous hand cards in [from, to] and returns
// them in hand order. Bounds are the caller's responsibility.
func (p *Player) RemoveRange(from, to int) []*Card {
	out := append([]*Card{}, p.Hand[from:to+1]...)
	p.Hand = append(p.Hand[:from], p.Hand[to+1:]...)
	return out
}

// IncrementBorrowedCount credits a player whose table card was taken away.
func (p *Player) IncrementBorrowedCount() {
	p.BorrowedCount++
	p.Score++
}
