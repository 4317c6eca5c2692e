package domain

// Table is the communal zone holding the most recently played group. No
// history is kept: a displaced group is handed to whoever beat it.
type Table struct {
	Cards []*Card
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// SetCards replaces the active group wholesale and returns the displaced one.
func (t *Table) SetCards(cards []*Card) []*Card {
	prev := t.Cards
	t.Cards = cards
	return prev
}

// CardAt returns the table card at idx, or nil when out of range.
func (t *Table) CardAt(idx int) *Card {
	if idx < 0 || idx >= len(t.Cards) {
		return nil
	}
	return t.Cards[idx]
}

// RemoveAt detaches and returns the card at idx.
func (t *Table) RemoveAt(idx int) *Card {
	c := t.CardAt(idx)
	if c == nil {
		return nil
	}
	t.Cards = append(t.Cards[:idx], t.Cards[idx+1:]...)
	return c
}

// Clear empties the table between rounds.
func (t *Table) Clear() { t.Cards = nil }
