package bot

import "fmt"

// botIDPrefix marks seats held by server-driven players.
const botIDPrefix = "bot-"

var botNames = []string{
	"Margaux", "Theo", "Colette", "Remy", "Odette", "Luc", "Elise", "Hugo",
}

// IsBot reports whether the given user id represents a bot seat.
func IsBot(userID string) bool {
	return len(userID) > len(botIDPrefix) && userID[:len(botIDPrefix)] == botIDPrefix
}

// Identity is a bot's stable id and display name.
type Identity struct {
	UserID string
	Name   string
}

// GetIdentity returns the identity for the given bot slot.
func GetIdentity(slot int) Identity {
	name := botNames[((slot%len(botNames))+len(botNames))%len(botNames)]
	return Identity{
		UserID: fmt.Sprintf("%s%d", botIDPrefix, slot),
		Name:   name,
	}
}
