package app

// EventKind names an outbound notification. The values double as the wire
// message types broadcast by the room boundary.
type EventKind string

const (
	EventJoined  EventKind = "joined"
	EventLeft    EventKind = "left"
	EventWaiting EventKind = "waiting"
	EventStart   EventKind = "start"
	EventStop    EventKind = "stop"
	EventWon     EventKind = "won"
	EventTimeout EventKind = "timeout"
	EventTurn    EventKind = "turn"
	EventBorrow  EventKind = "borrow"
	EventJouer   EventKind = "jouer"
)

// Event is an outbound notification produced by the session. Params land in
// the message payload as-is; an empty Recipients list means broadcast.
type Event struct {
	Kind       EventKind
	Params     map[string]any
	Recipients []string
}
