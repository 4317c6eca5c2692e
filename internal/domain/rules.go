package domain

// CardsType classifies a played group. The constant order doubles as the
// strength ranking used when equal-sized groups are compared.
type CardsType int

const (
	TypeInvalid CardsType = iota
	TypeSingle
	TypeSequence
	TypeSame
)

func (t CardsType) String() string {
	switch t {
	case TypeSingle:
		return "single"
	case TypeSequence:
		return "sequence"
	case TypeSame:
		return "same"
	default:
		return "invalid"
	}
}

// GetCardsType classifies cards by their active faces, in the given order.
func GetCardsType(cards []*Card) CardsType {
	if len(cards) == 0 {
		return TypeInvalid
	}
	if len(cards) == 1 {
		return TypeSingle
	}
	if allSameValue(cards) {
		return TypeSame
	}
	if isSequence(cards) {
		return TypeSequence
	}
	return TypeInvalid
}

func allSameValue(cards []*Card) bool {
	for _, c := range cards[1:] {
		if c.Value() != cards[0].Value() {
			return false
		}
	}
	return true
}

// isSequence reports whether every adjacent pair of active faces differs by
// exactly one, ascending or descending.
func isSequence(cards []*Card) bool {
	for i := 1; i < len(cards); i++ {
		diff := cards[i].Value() - cards[i-1].Value()
		if diff != 1 && diff != -1 {
			return false
		}
	}
	return true
}

// CompareCardLists ranks two played groups. More cards beat fewer regardless
// of type; equal sizes compare by type (single < sequence < same), then by
// the sum of active faces. Positive means a outranks b.
func CompareCardLists(a, b []*Card) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	typeA, typeB := GetCardsType(a), GetCardsType(b)
	if typeA != typeB {
		return int(typeA) - int(typeB)
	}
	return sumValues(a) - sumValues(b)
}

func sumValues(cards []*Card) int {
	sum := 0
	for _, c := range cards {
		sum += c.Value()
	}
	return sum
}

// IsValidPlay reports whether cards form a playable combination.
func IsValidPlay(cards []*Card) bool {
	return GetCardsType(cards) != TypeInvalid
}

// BiggerThan reports whether a strictly beats b. Ties lose.
func BiggerThan(a, b []*Card) bool {
	return CompareCardLists(a, b) > 0
}
