package domain

import "time"

// Phase represents the lifecycle stage of a Jouer room.
type Phase string

const (
	// PhaseWaiting is the lobby state between rounds.
	PhaseWaiting Phase = "waiting"
	// PhasePlaying is the active round.
	PhasePlaying Phase = "playing"
	// PhaseAwarding is the post-round scoreboard window.
	PhaseAwarding Phase = "awarding"
)

// Default phase durations, overridable through config.
const (
	DefaultGameDuration     = 3600 * time.Second
	DefaultAwardingDuration = 6 * time.Second
)

// TransitionKind identifies a phase-change effect reported by Update.
type TransitionKind string

const (
	// TransitionWaiting: the room fell back to the lobby.
	TransitionWaiting TransitionKind = "waiting"
	// TransitionPlaying: the award window elapsed and a new round begins.
	TransitionPlaying TransitionKind = "playing"
	// TransitionTimeout: the round ended on the clock.
	TransitionTimeout TransitionKind = "timeout"
	// TransitionWon: the round ended with a winner.
	TransitionWon TransitionKind = "won"
	// TransitionStopped: the round was abandoned (players left).
	TransitionStopped TransitionKind = "stopped"
)

// Transition is an explicit phase-change record. The session interprets these
// instead of the game holding callbacks into it.
type Transition struct {
	Kind       TransitionKind
	WinnerName string
}

// Game is the lifecycle state machine for one room. Deadlines are epoch
// milliseconds, zero when not applicable: GameEndsAt is set only while
// playing, AwardEndsAt only while awarding, both zero while waiting.
type Game struct {
	Phase       Phase
	RoomName    string
	MaxPlayers  int
	Mode        string
	AwardEndsAt int64
	GameEndsAt  int64

	GameDuration     time.Duration
	AwardingDuration time.Duration
}

// NewGame returns a game in the waiting phase.
func NewGame(roomName string, maxPlayers int, mode string) *Game {
	return &Game{
		Phase:            PhaseWaiting,
		RoomName:         roomName,
		MaxPlayers:       maxPlayers,
		Mode:             mode,
		GameDuration:     DefaultGameDuration,
		AwardingDuration: DefaultAwardingDuration,
	}
}

func (g *Game) IsWaiting() bool  { return g.Phase == PhaseWaiting }
func (g *Game) IsPlaying() bool  { return g.Phase == PhasePlaying }
func (g *Game) IsAwarding() bool { return g.Phase == PhaseAwarding }

// StartGame enters the playing phase and arms the round deadline. No-op when
// already playing; reports whether a transition happened.
func (g *Game) StartGame(now int64) bool {
	if g.IsPlaying() {
		return false
	}
	g.Phase = PhasePlaying
	g.AwardEndsAt = 0
	g.GameEndsAt = now + g.GameDuration.Milliseconds()
	return true
}

// StartAwarding enters the scoreboard window between rounds.
func (g *Game) StartAwarding(now int64) bool {
	if g.IsAwarding() {
		return false
	}
	g.Phase = PhaseAwarding
	g.AwardEndsAt = now + g.AwardingDuration.Milliseconds()
	g.GameEndsAt = 0
	return true
}

// StartWaiting falls back to the lobby, clearing both deadlines.
func (g *Game) StartWaiting() bool {
	if g.IsWaiting() {
		return false
	}
	g.Phase = PhaseWaiting
	g.AwardEndsAt = 0
	g.GameEndsAt = 0
	return true
}

// Update re-evaluates the lifecycle once per simulation tick. winnerName is
// non-empty when the session detected a finished round. Waiting never
// auto-starts: the session triggers StartGame once every seat is ready.
func (g *Game) Update(now int64, playerCount int, winnerName string) []Transition {
	switch g.Phase {
	case PhasePlaying:
		if playerCount <= 1 {
			g.StartWaiting()
			return []Transition{{Kind: TransitionStopped}, {Kind: TransitionWaiting}}
		}
		if g.GameEndsAt != 0 && g.GameEndsAt < now {
			g.StartAwarding(now)
			return []Transition{{Kind: TransitionTimeout}}
		}
		if winnerName != "" {
			g.StartAwarding(now)
			return []Transition{{Kind: TransitionWon, WinnerName: winnerName}}
		}
	case PhaseAwarding:
		if playerCount <= 1 {
			g.StartWaiting()
			return []Transition{{Kind: TransitionWaiting}}
		}
		if g.AwardEndsAt != 0 && g.AwardEndsAt < now {
			g.StartGame(now)
			return []Transition{{Kind: TransitionPlaying}}
		}
	}
	return nil
}
