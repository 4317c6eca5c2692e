package domain

import (
	"math/rand"
	"sort"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name        string
		playerCount int
		bound       int
		wantCards   int
	}{
		{name: "two players use bound 9", playerCount: 2, bound: 9, wantCards: 36},
		{name: "three players use bound 10", playerCount: 3, bound: 10, wantCards: 45},
		{name: "six players use bound 10", playerCount: 6, bound: 10, wantCards: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeck()
			d.Generate(tt.playerCount)

			if got := d.Size(); got != tt.wantCards {
				t.Fatalf("Size() = %d, want %d", got, tt.wantCards)
			}

			seen := make(map[string]bool)
			for _, c := range d.Cards {
				if seen[c.ID] {
					t.Fatalf("duplicate card id %s", c.ID)
				}
				seen[c.ID] = true

				front, back := c.Values[0], c.Values[1]
				if front == back {
					t.Fatalf("card %s has identical faces", c.ID)
				}
				for _, v := range c.Values {
					if v < 1 || v > tt.bound {
						t.Fatalf("card %s face %d out of range [1,%d]", c.ID, v, tt.bound)
					}
				}
				if c.State != CardInDeck {
					t.Fatalf("card %s state = %s, want %s", c.ID, c.State, CardInDeck)
				}
			}
		})
	}
}

func TestShuffle_PreservesCardSet(t *testing.T) {
	d := NewDeck()
	d.Generate(3)
	before := cardIDs(d.Cards)

	d.Shuffle(rand.New(rand.NewSource(7)))

	after := cardIDs(d.Cards)
	sort.Strings(before)
	sort.Strings(after)

	if len(before) != len(after) {
		t.Fatalf("shuffle changed deck size: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("shuffle changed card set at %d: %s != %s", i, before[i], after[i])
		}
	}
}

func TestShuffle_OnlyOrientationChanges(t *testing.T) {
	d := NewDeck()
	d.Generate(3)
	faces := make(map[string][2]int, d.Size())
	for _, c := range d.Cards {
		faces[c.ID] = c.Values
	}

	d.Shuffle(rand.New(rand.NewSource(7)))

	for _, c := range d.Cards {
		orig := faces[c.ID]
		if c.Values != orig && c.Values != [2]int{orig[1], orig[0]} {
			t.Fatalf("card %s faces mutated beyond a flip: %v -> %v", c.ID, orig, c.Values)
		}
	}
}

func TestRandomDraw(t *testing.T) {
	d := NewDeck()
	d.Generate(2)

	total := d.Size()
	for i := 0; i < total; i++ {
		if _, err := d.RandomDraw(); err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
	}

	if _, err := d.RandomDraw(); err != ErrDeckExhausted {
		t.Fatalf("expected ErrDeckExhausted, got %v", err)
	}
}

func TestDrawCard(t *testing.T) {
	d := NewDeck()
	d.Generate(3)

	c := d.DrawCard("2-1")
	if c == nil || c.ID != "2-1" {
		t.Fatalf("DrawCard(2-1) = %v", c)
	}
	if d.DrawCard("2-1") != nil {
		t.Fatal("expected second draw of same id to return nil")
	}
	if d.Size() != 44 {
		t.Fatalf("Size() = %d after draw, want 44", d.Size())
	}
}

func TestDealQuota(t *testing.T) {
	tests := []struct {
		name        string
		playerCount int
		want        int
	}{
		{name: "two players deal short of an even split", playerCount: 2, want: 17},
		{name: "three players split evenly", playerCount: 3, want: 15},
		{name: "four players deal short of the floor", playerCount: 4, want: 10},
		{name: "five players take the floor", playerCount: 5, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeck()
			d.Generate(tt.playerCount)
			if got := d.DealQuota(tt.playerCount); got != tt.want {
				t.Fatalf("DealQuota(%d) = %d, want %d", tt.playerCount, got, tt.want)
			}
		})
	}
}

func cardIDs(cards []*Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}
