package app

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"jouer/internal/domain"
)

// MinPlayersToStart is the number of occupied seats required to begin a round.
const MinPlayersToStart = 2

// firstHandSum identifies the round's starting card: the unique pair whose
// two faces sum to 3.
const firstHandSum = 3

// Action names accepted by the play and take-a-card operations.
const (
	ActionPlay   = "play"
	ActionBorrow = "borrow"
	ActionJouer  = "jouer"
)

var (
	ErrRoomFull           = errors.New("room is full")
	ErrTooFewPlayers      = errors.New("not enough players to start")
	ErrUnknownPlayer      = errors.New("player not found")
	ErrNotPlaying         = errors.New("game not in playing phase")
	ErrNotYourTurn        = errors.New("not the player's turn")
	ErrCardNotInHand      = errors.New("card is not in the player's hand")
	ErrNotAdjacent        = errors.New("cards are not adjacent in hand")
	ErrInvalidCombination = errors.New("cards do not form a playable set")
	ErrCannotBeat         = errors.New("cards do not beat the table")
	ErrNoSuchCard         = errors.New("no card at that table position")
	ErrPendingBorrow      = errors.New("a borrow offer is already pending")
	ErrNoPendingBorrow    = errors.New("no borrow offer to acknowledge")
	ErrJouerExhausted     = errors.New("no jouer uses left")
	ErrUnknownAction      = errors.New("unknown action type")
)

// Session is the authoritative state for one room: the lifecycle machine, the
// players in join order, the deck and the table. All mutation goes through
// its methods; the room boundary serializes calls, so there is no locking
// here.
type Session struct {
	game    *domain.Game
	players map[string]*domain.Player
	order   []string // join order; defines turn order
	deck    *domain.Deck
	table   *domain.Table

	activePlayerID string
	jouerAllowance int

	rng *rand.Rand
	now func() int64 // epoch milliseconds, replaceable in tests
}

// NewSession constructs a session with the provided rng or a time-seeded
// default.
func NewSession(roomName string, maxPlayers int, mode string, rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{
		game:           domain.NewGame(roomName, maxPlayers, mode),
		players:        make(map[string]*domain.Player),
		deck:           domain.NewDeck(),
		table:          domain.NewTable(),
		jouerAllowance: domain.DefaultJouerAllowance,
		rng:            rng,
		now:            func() int64 { return time.Now().UnixMilli() },
	}
}

// Game exposes the lifecycle machine for inspection and configuration.
func (s *Session) Game() *domain.Game { return s.game }

// Table exposes the communal zone.
func (s *Session) Table() *domain.Table { return s.table }

// Deck exposes the current draw pile.
func (s *Session) Deck() *domain.Deck { return s.deck }

// Player returns a participant by id, or nil.
func (s *Session) Player(id string) *domain.Player { return s.players[id] }

// Players returns the participants in turn order.
func (s *Session) Players() []*domain.Player {
	out := make([]*domain.Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.players[id])
	}
	return out
}

// PlayerCount returns the number of occupied seats.
func (s *Session) PlayerCount() int { return len(s.players) }

// ActivePlayerID returns the id whose turn it is, empty outside a round.
func (s *Session) ActivePlayerID() string { return s.activePlayerID }

// PlayerAdd seats a new participant. Re-adding an existing id is a no-op so
// a reconnect can re-attach to its seat.
func (s *Session) PlayerAdd(id, name string) ([]Event, error) {
	if _, ok := s.players[id]; ok {
		return nil, nil
	}
	if len(s.players) >= s.game.MaxPlayers {
		return nil, ErrRoomFull
	}

	p := domain.NewPlayer(id, name)
	s.players[id] = p
	s.order = append(s.order, id)

	return []Event{{
		Kind:   EventJoined,
		Params: map[string]any{"name": p.Name, "playerId": p.ID},
	}}, nil
}

// PlayerRemove unseats a participant. When the active player leaves mid-round
// the turn moves on before the seat disappears, so the round keeps a valid
// active player; their hand simply leaves play.
func (s *Session) PlayerRemove(id string) ([]Event, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}

	var events []Event
	if s.game.IsPlaying() && s.activePlayerID == id && len(s.order) > 1 {
		events = append(events, s.nextTurn()...)
	}

	delete(s.players, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.activePlayerID == id {
		s.activePlayerID = ""
	}

	return append(events, Event{
		Kind:   EventLeft,
		Params: map[string]any{"name": p.Name, "playerId": p.ID},
	}), nil
}

// SetReady marks a seat ready; once every seat is ready the round starts.
func (s *Session) SetReady(id string) ([]Event, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	p.Ready = true

	if s.game.IsWaiting() && s.AllReady() {
		return s.StartGame()
	}
	return nil, nil
}

// AllReady reports whether every seat is ready and enough seats are taken.
func (s *Session) AllReady() bool {
	if len(s.players) < MinPlayersToStart {
		return false
	}
	for _, p := range s.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// StartGame begins a round: enters the playing phase, regenerates the deck
// and deals. A failed deal falls back to waiting instead of leaving a
// half-dealt table.
func (s *Session) StartGame() ([]Event, error) {
	if len(s.players) < MinPlayersToStart {
		return nil, ErrTooFewPlayers
	}
	if !s.game.StartGame(s.now()) {
		return nil, nil
	}

	dealt, err := s.initCards()
	if err != nil {
		// Roll back silently: callers drop events on error, so announcing
		// a start that never happened would only desync clients.
		s.game.StartWaiting()
		s.resetToWaiting()
		return nil, err
	}
	return append([]Event{{Kind: EventStart, Params: map[string]any{}}}, dealt...), nil
}

// initCards regenerates and shuffles the deck for the current player count,
// clears every hand and deals round-robin, one card at a time, up to the
// per-player quota. The holder of the first-hand card opens the round.
func (s *Session) initCards() ([]Event, error) {
	s.deck.Initialize(len(s.players), s.rng)
	s.table.Clear()
	for _, id := range s.order {
		s.players[id].ResetForRound()
		s.players[id].JouerCount = s.jouerAllowance
	}

	quota := s.deck.DealQuota(len(s.players))
	for i := 0; i < quota; i++ {
		for _, id := range s.order {
			card, err := s.deck.RandomDraw()
			if err != nil {
				return nil, err
			}
			s.players[id].AddCard(card)
		}
	}

	s.activePlayerID = s.firstHandHolder()
	first := s.players[s.activePlayerID]
	first.Status = domain.StatusThinking

	return []Event{{
		Kind:   EventTurn,
		Params: map[string]any{"name": first.Name, "playerId": first.ID},
	}}, nil
}

// firstHandHolder finds who was dealt the first-hand card. When the card
// stayed in the undealt remainder, the first seat in join order opens.
func (s *Session) firstHandHolder() string {
	for _, id := range s.order {
		for _, c := range s.players[id].Hand {
			if c.FaceSum() == firstHandSum {
				return id
			}
		}
	}
	return s.order[0]
}

// nextTurn advances the active player cyclically in join order.
func (s *Session) nextTurn() []Event {
	if len(s.order) == 0 {
		return nil
	}
	idx := 0
	for i, id := range s.order {
		if id == s.activePlayerID {
			idx = i
			break
		}
	}
	if cur, ok := s.players[s.activePlayerID]; ok {
		cur.Status = domain.StatusDefault
	}

	s.activePlayerID = s.order[(idx+1)%len(s.order)]
	next := s.players[s.activePlayerID]
	next.Status = domain.StatusThinking

	return []Event{{
		Kind:   EventTurn,
		Params: map[string]any{"name": next.Name, "playerId": next.ID},
	}}
}

// PlayCards plays a group of hand-adjacent cards onto the table. The group
// must classify as a valid combination and beat the current table group; the
// displaced group is eaten by the player (one point per card).
func (s *Session) PlayCards(playerID string, cardIDs []string) ([]Event, error) {
	if !s.game.IsPlaying() {
		return nil, ErrNotPlaying
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if s.activePlayerID != playerID {
		return nil, ErrNotYourTurn
	}
	// An open offer must be acknowledged first: playing would replace the
	// table and strand the offered card.
	if p.BorrowingCard != nil {
		return nil, ErrPendingBorrow
	}
	if len(cardIDs) == 0 {
		return nil, ErrInvalidCombination
	}

	indices := make([]int, 0, len(cardIDs))
	for _, id := range cardIDs {
		idx := p.HandIndex(id)
		if idx < 0 {
			return nil, ErrCardNotInHand
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[i-1]+1 {
			return nil, ErrNotAdjacent
		}
	}

	lo, hi := indices[0], indices[len(indices)-1]
	cards := p.Hand[lo : hi+1]
	if !domain.IsValidPlay(cards) {
		return nil, ErrInvalidCombination
	}
	if len(s.table.Cards) > 0 && !domain.BiggerThan(cards, s.table.Cards) {
		return nil, ErrCannotBeat
	}

	played := p.RemoveRange(lo, hi)
	for _, c := range played {
		c.State = domain.CardOnTable
	}
	eaten := s.table.SetCards(played)
	for _, c := range eaten {
		c.Owner = p.ID
	}
	p.Score += len(eaten)
	p.Eaten = append(p.Eaten, eaten...)
	p.LastAction = ActionPlay

	return s.nextTurn(), nil
}

// TryGetCard opens a borrow or jouer offer on a table card. Nothing moves
// yet: the offer is recorded and announced, and the client confirms the final
// orientation and insertion slot through AckGetCard.
func (s *Session) TryGetCard(playerID string, cardIdx int, action string) ([]Event, error) {
	if !s.game.IsPlaying() {
		return nil, ErrNotPlaying
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if s.activePlayerID != playerID {
		return nil, ErrNotYourTurn
	}
	if action != ActionBorrow && action != ActionJouer {
		return nil, ErrUnknownAction
	}
	if p.BorrowingCard != nil {
		return nil, ErrPendingBorrow
	}
	if action == ActionJouer && p.JouerCount <= 0 {
		return nil, ErrJouerExhausted
	}

	card := s.table.CardAt(cardIdx)
	if card == nil {
		return nil, ErrNoSuchCard
	}

	p.BorrowingCard = card
	p.LastAction = action

	return []Event{{
		Kind:   EventKind(action),
		Params: map[string]any{"name": p.Name, "playerId": p.ID, "cardId": card.ID},
	}}, nil
}

// AckGetCard commits a pending offer: the card leaves the table, is flipped
// when asked, credits its previous owner and lands at targetIdx in the
// requester's hand. Only a borrow-type offer passes the turn; a jouer-type
// offer consumes one jouer charge and keeps it.
func (s *Session) AckGetCard(playerID string, cardIdx int, inverse bool, targetIdx int) ([]Event, error) {
	if !s.game.IsPlaying() {
		return nil, ErrNotPlaying
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if p.BorrowingCard == nil {
		return nil, ErrNoPendingBorrow
	}

	card := s.table.CardAt(cardIdx)
	if card == nil || card.ID != p.BorrowingCard.ID {
		return nil, ErrNoSuchCard
	}

	s.table.RemoveAt(cardIdx)
	if inverse {
		card.Reverse()
	}
	if prev, ok := s.players[card.Owner]; ok && prev != p {
		prev.IncrementBorrowedCount()
	}
	p.InsertCard(targetIdx, card)

	action := p.LastAction
	p.BorrowingCard = nil
	if action == ActionJouer {
		p.JouerCount--
		return nil, nil
	}
	return s.nextTurn(), nil
}

// Update re-evaluates the lifecycle once per simulation tick and interprets
// the resulting transitions: a finished award window re-deals, a fallback to
// waiting clears the round.
func (s *Session) Update() []Event {
	now := s.now()

	winner := ""
	if s.game.IsPlaying() && s.roundFinished() {
		winner = s.winningPlayerName()
	}

	var events []Event
	for _, tr := range s.game.Update(now, len(s.players), winner) {
		switch tr.Kind {
		case domain.TransitionTimeout:
			events = append(events, Event{Kind: EventTimeout, Params: map[string]any{}})
		case domain.TransitionWon:
			events = append(events, Event{Kind: EventWon, Params: map[string]any{"name": tr.WinnerName}})
		case domain.TransitionStopped:
			events = append(events, Event{Kind: EventStop, Params: map[string]any{}})
		case domain.TransitionWaiting:
			s.resetToWaiting()
			events = append(events, Event{Kind: EventWaiting, Params: map[string]any{}})
		case domain.TransitionPlaying:
			events = append(events, Event{Kind: EventStart, Params: map[string]any{}})
			dealt, err := s.initCards()
			if err != nil {
				s.game.StartWaiting()
				s.resetToWaiting()
				events = append(events, Event{Kind: EventWaiting, Params: map[string]any{}})
				continue
			}
			events = append(events, dealt...)
		}
	}
	return events
}

// roundFinished reports whether a dealt player has emptied their hand. A
// just-joined spectator-to-be holds no cards and never acted, so the
// last-action guard keeps them from ending a round they never entered.
func (s *Session) roundFinished() bool {
	for _, p := range s.players {
		if len(p.Hand) == 0 && p.LastAction != "" {
			return true
		}
	}
	return false
}

// winningPlayerName returns the highest-scoring player's name.
func (s *Session) winningPlayerName() string {
	var winner *domain.Player
	for _, id := range s.order {
		p := s.players[id]
		if winner == nil || p.Score > winner.Score {
			winner = p
		}
	}
	if winner == nil {
		return ""
	}
	return winner.Name
}

// resetToWaiting clears round state when the room falls back to the lobby.
func (s *Session) resetToWaiting() {
	s.table.Clear()
	s.activePlayerID = ""
	for _, p := range s.players {
		p.ResetForRound()
		p.Ready = false
	}
}

// Scores returns the current per-player round scores keyed by player id.
func (s *Session) Scores() map[string]int {
	out := make(map[string]int, len(s.players))
	for id, p := range s.players {
		out[id] = p.Score
	}
	return out
}

// SetClock replaces the time source; tests use a fixed clock.
func (s *Session) SetClock(now func() int64) {
	if now != nil {
		s.now = now
	}
}

// SetJouerAllowance overrides the per-round jouer budget applied at each deal.
func (s *Session) SetJouerAllowance(n int) {
	if n > 0 {
		s.jouerAllowance = n
	}
}
