package bot

import (
	"jouer/internal/app"
	"jouer/internal/domain"
)

// MoveKind is the action a bot chose for its turn.
type MoveKind string

const (
	MovePlay   MoveKind = "play"
	MoveBorrow MoveKind = "borrow"
)

// Move is a bot's decision for one turn. For MovePlay, CardIDs is the
// hand-adjacent group to put down. For MoveBorrow, CardIndex is the table
// position to take and TargetIndex where to insert it.
type Move struct {
	Kind        MoveKind
	CardIDs     []string
	CardIndex   int
	TargetIndex int
}

// Agent picks moves for one bot seat. It plays the smallest hand-adjacent
// group that beats the table and borrows when nothing does.
type Agent struct {
	UserID string
}

// NewAgent builds an agent for the given bot seat.
func NewAgent(userID string) *Agent {
	return &Agent{UserID: userID}
}

// ChooseMove inspects the bot's hand and the table and returns a legal move.
// The second return is false when the bot holds no cards.
func (a *Agent) ChooseMove(s *app.Session, table []*domain.Card) (Move, bool) {
	p := s.Player(a.UserID)
	if p == nil || len(p.Hand) == 0 {
		return Move{}, false
	}

	// Shortest groups first: conserve long sequences for later turns.
	for size := 1; size <= len(p.Hand); size++ {
		for lo := 0; lo+size <= len(p.Hand); lo++ {
			group := p.Hand[lo : lo+size]
			if !domain.IsValidPlay(group) {
				continue
			}
			if len(table) > 0 && !domain.BiggerThan(group, table) {
				continue
			}
			ids := make([]string, size)
			for i, c := range group {
				ids[i] = c.ID
			}
			return Move{Kind: MovePlay, CardIDs: ids}, true
		}
	}

	// Nothing beats the table: take its first card into the front of the hand.
	return Move{Kind: MoveBorrow, CardIndex: 0, TargetIndex: 0}, true
}
