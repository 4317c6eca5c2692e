package nakama

import (
	"jouer/internal/app"
	"jouer/internal/domain"
)

// cardJSON is the wire form of a face-up card.
type cardJSON struct {
	ID     string `json:"id"`
	Values [2]int `json:"values"`
	Owner  string `json:"owner,omitempty"`
}

// playerJSON is the wire form of a seated player. Hand is populated only in
// the owner's own snapshot; everyone else sees CardsInHand.
type playerJSON struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	Ready         bool       `json:"ready"`
	Score         int        `json:"score"`
	JouerCount    int        `json:"jouerCount"`
	BorrowedCount int        `json:"borrowedCount"`
	CardsInHand   int        `json:"cardsInHand"`
	Hand          []cardJSON `json:"hand,omitempty"`
}

// gameJSON is the wire form of the room lifecycle.
type gameJSON struct {
	Phase       string `json:"phase"`
	RoomName    string `json:"roomName"`
	GameEndsAt  int64  `json:"gameEndsAt,omitempty"`
	AwardEndsAt int64  `json:"awardEndsAt,omitempty"`
}

// snapshotJSON is a full per-viewer view of the room, sent privately. Balance
// is the viewer's own wallet; other players' wallets are never included.
type snapshotJSON struct {
	Game         gameJSON     `json:"game"`
	Players      []playerJSON `json:"players"`
	Table        []cardJSON   `json:"table"`
	ActivePlayer string       `json:"activePlayer"`
	DeckSize     int          `json:"deckSize"`
	Balance      int64        `json:"balance"`
}

func toCardJSON(c *domain.Card) cardJSON {
	return cardJSON{ID: c.ID, Values: c.Values, Owner: c.Owner}
}

// snapshotForViewer builds the room view for one player. Other players' hands
// are reduced to a count so hidden information never leaves the server.
func snapshotForViewer(s *app.Session, viewerID string) snapshotJSON {
	g := s.Game()
	out := snapshotJSON{
		Game: gameJSON{
			Phase:       string(g.Phase),
			RoomName:    g.RoomName,
			GameEndsAt:  g.GameEndsAt,
			AwardEndsAt: g.AwardEndsAt,
		},
		ActivePlayer: s.ActivePlayerID(),
		DeckSize:     s.Deck().Size(),
	}

	for _, c := range s.Table().Cards {
		out.Table = append(out.Table, toCardJSON(c))
	}

	for _, p := range s.Players() {
		pj := playerJSON{
			ID:            p.ID,
			Name:          p.Name,
			Status:        string(p.Status),
			Ready:         p.Ready,
			Score:         p.Score,
			JouerCount:    p.JouerCount,
			BorrowedCount: p.BorrowedCount,
			CardsInHand:   len(p.Hand),
		}
		if p.ID == viewerID {
			for _, c := range p.Hand {
				pj.Hand = append(pj.Hand, toCardJSON(c))
			}
		}
		out.Players = append(out.Players, pj)
	}
	return out
}
