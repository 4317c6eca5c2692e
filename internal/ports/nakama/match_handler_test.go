package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"jouer/internal/app"
	"jouer/internal/bot"
	"jouer/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockPresence is a minimal runtime.Presence for seating tests.
type mockPresence struct {
	userID   string
	username string
}

func (p mockPresence) GetUserId() string                 { return p.userID }
func (p mockPresence) GetSessionId() string              { return "session-" + p.userID }
func (p mockPresence) GetNodeId() string                 { return "node" }
func (p mockPresence) GetHidden() bool                   { return false }
func (p mockPresence) GetPersistence() bool              { return false }
func (p mockPresence) GetUsername() string               { return p.username }
func (p mockPresence) GetStatus() string                 { return "" }
func (p mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

// mockMatchData wraps a presence with an opcode and payload.
type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (m mockMatchData) GetOpCode() int64      { return m.opCode }
func (m mockMatchData) GetData() []byte       { return m.data }
func (m mockMatchData) GetReliable() bool     { return true }
func (m mockMatchData) GetReceiveTime() int64 { return 0 }

type broadcast struct {
	opCode     int64
	data       []byte
	recipients []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcasts   []broadcast
	labelUpdates []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcasts = append(md.broadcasts, broadcast{
		opCode:     opCode,
		data:       append([]byte(nil), data...),
		recipients: presences,
	})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates = append(md.labelUpdates, label)
	return nil
}

func (md *mockDispatcher) opCodes() []int64 {
	out := make([]int64, len(md.broadcasts))
	for i, b := range md.broadcasts {
		out[i] = b.opCode
	}
	return out
}

func (md *mockDispatcher) countOp(opCode int64) int {
	n := 0
	for _, b := range md.broadcasts {
		if b.opCode == opCode {
			n++
		}
	}
	return n
}

type mockEconomy struct {
	balances map[string]int64
	updates  []ports.WalletUpdate
}

func (me *mockEconomy) GetBalance(ctx context.Context, userID string) (int64, error) {
	return me.balances[userID], nil
}

func (me *mockEconomy) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	me.updates = append(me.updates, updates...)
	return nil
}

// newTestMatch boots a match and seats the given users.
func newTestMatch(t *testing.T, userIDs ...string) (*matchHandler, *MatchState, *mockDispatcher) {
	t.Helper()

	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}

	raw, _, label := handler.MatchInit(context.Background(), noopLogger{}, nil, nil, map[string]interface{}{})
	state, ok := raw.(*MatchState)
	if !ok {
		t.Fatalf("MatchInit returned %T, want *MatchState", raw)
	}
	if label == "" {
		t.Fatal("MatchInit returned an empty label")
	}
	state.Economy = &mockEconomy{}

	presences := make([]runtime.Presence, 0, len(userIDs))
	for _, uid := range userIDs {
		presences = append(presences, mockPresence{userID: uid, username: uid})
	}
	raw = handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, presences)
	state = raw.(*MatchState)

	return handler, state, dispatcher
}

func TestMatchInit_LabelIsOpenWaiting(t *testing.T) {
	handler := newMatchHandler()

	_, tickRate, labelStr := handler.MatchInit(context.Background(), noopLogger{}, nil, nil, map[string]interface{}{})
	if tickRate != 1 {
		t.Fatalf("tickRate = %d, want 1", tickRate)
	}

	var label Label
	if err := json.Unmarshal([]byte(labelStr), &label); err != nil {
		t.Fatalf("label is not valid JSON: %v", err)
	}
	if !label.Open || label.Game != LabelGame || label.Phase != "waiting" {
		t.Fatalf("label = %+v, want open waiting %s room", label, LabelGame)
	}
}

func TestMatchJoin_BroadcastsJoinAndPrivateSnapshots(t *testing.T) {
	_, state, dispatcher := newTestMatch(t, "user-1", "user-2")

	if state.Session.PlayerCount() != 2 {
		t.Fatalf("player count = %d, want 2", state.Session.PlayerCount())
	}
	if got := dispatcher.countOp(OpPlayerJoined); got != 2 {
		t.Fatalf("joined broadcasts = %d, want 2: ops %v", got, dispatcher.opCodes())
	}
	if got := dispatcher.countOp(OpStateSync); got != 2 {
		t.Fatalf("snapshot messages = %d, want one per presence", got)
	}
	for _, b := range dispatcher.broadcasts {
		if b.opCode == OpStateSync && len(b.recipients) != 1 {
			t.Fatalf("snapshot must be targeted to exactly one presence, got %d", len(b.recipients))
		}
	}
	if len(dispatcher.labelUpdates) == 0 {
		t.Fatal("expected a label update after join")
	}
}

func TestMatchJoinAttempt_RejectsWhenFull(t *testing.T) {
	handler, state, _ := newTestMatch(t, "u1", "u2", "u3", "u4", "u5", "u6")

	_, allowed, reason := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, nil, 1, state, mockPresence{userID: "u7"}, nil)
	if allowed {
		t.Fatal("seventh join should be rejected")
	}
	if reason != "match_full" {
		t.Fatalf("reason = %q, want match_full", reason)
	}

	// A seated player may always rejoin.
	_, allowed, _ = handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, nil, 1, state, mockPresence{userID: "u1"}, nil)
	if !allowed {
		t.Fatal("rejoin of a seated player should be allowed")
	}
}

func TestMatchLoop_AllReadyStartsRound(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1", "user-2")
	dispatcher.broadcasts = nil
	dispatcher.labelUpdates = nil

	messages := []runtime.MatchData{
		mockMatchData{mockPresence: mockPresence{userID: "user-1"}, opCode: OpReady},
		mockMatchData{mockPresence: mockPresence{userID: "user-2"}, opCode: OpReady},
	}
	raw := handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, messages)
	state = raw.(*MatchState)

	if !state.Session.Game().IsPlaying() {
		t.Fatalf("phase = %s after all ready, want playing", state.Session.Game().Phase)
	}
	if dispatcher.countOp(OpGameStarted) != 1 {
		t.Fatalf("expected one start broadcast, ops %v", dispatcher.opCodes())
	}
	if dispatcher.countOp(OpTurnChanged) != 1 {
		t.Fatalf("expected one turn broadcast, ops %v", dispatcher.opCodes())
	}

	var label Label
	last := dispatcher.labelUpdates[len(dispatcher.labelUpdates)-1]
	if err := json.Unmarshal([]byte(last), &label); err != nil {
		t.Fatalf("label is not valid JSON: %v", err)
	}
	if label.Open || label.Phase != "playing" {
		t.Fatalf("label = %+v after start, want closed playing room", label)
	}
}

func TestSyncState_HidesOtherHands(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1", "user-2")

	messages := []runtime.MatchData{
		mockMatchData{mockPresence: mockPresence{userID: "user-1"}, opCode: OpReady},
		mockMatchData{mockPresence: mockPresence{userID: "user-2"}, opCode: OpReady},
	}
	raw := handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, messages)
	state = raw.(*MatchState)

	// Find the latest snapshot sent to user-1.
	var snapshot snapshotJSON
	found := false
	for i := len(dispatcher.broadcasts) - 1; i >= 0; i-- {
		b := dispatcher.broadcasts[i]
		if b.opCode != OpStateSync || len(b.recipients) != 1 || b.recipients[0].GetUserId() != "user-1" {
			continue
		}
		if err := json.Unmarshal(b.data, &snapshot); err != nil {
			t.Fatalf("snapshot is not valid JSON: %v", err)
		}
		found = true
		break
	}
	if !found {
		t.Fatal("no snapshot sent to user-1")
	}

	if len(snapshot.Players) != 2 {
		t.Fatalf("snapshot players = %d, want 2", len(snapshot.Players))
	}
	for _, p := range snapshot.Players {
		if p.CardsInHand != 17 {
			t.Fatalf("player %s cardsInHand = %d, want 17", p.ID, p.CardsInHand)
		}
		if p.ID == "user-1" && len(p.Hand) != 17 {
			t.Fatalf("viewer's own hand has %d cards, want 17", len(p.Hand))
		}
		if p.ID != "user-1" && len(p.Hand) != 0 {
			t.Fatalf("another player's hand leaked %d cards", len(p.Hand))
		}
	}
}

func TestSyncState_IncludesOnlyViewerBalance(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1", "user-2")
	state.Economy = &mockEconomy{balances: map[string]int64{"user-1": 1200, "user-2": 40}}
	dispatcher.broadcasts = nil

	handler.syncState(context.Background(), state, dispatcher, noopLogger{})

	seen := make(map[string]int64)
	for _, b := range dispatcher.broadcasts {
		if b.opCode != OpStateSync {
			continue
		}
		if len(b.recipients) != 1 {
			t.Fatalf("snapshot must be targeted to exactly one presence, got %d", len(b.recipients))
		}
		var snapshot snapshotJSON
		if err := json.Unmarshal(b.data, &snapshot); err != nil {
			t.Fatalf("snapshot is not valid JSON: %v", err)
		}
		seen[b.recipients[0].GetUserId()] = snapshot.Balance
	}

	if seen["user-1"] != 1200 {
		t.Fatalf("user-1 snapshot balance = %d, want 1200", seen["user-1"])
	}
	if seen["user-2"] != 40 {
		t.Fatalf("user-2 snapshot balance = %d, want 40", seen["user-2"])
	}
}

func TestMatchLoop_RejectedPlaySendsTargetedError(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1", "user-2")

	messages := []runtime.MatchData{
		mockMatchData{mockPresence: mockPresence{userID: "user-1"}, opCode: OpReady},
		mockMatchData{mockPresence: mockPresence{userID: "user-2"}, opCode: OpReady},
	}
	raw := handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, messages)
	state = raw.(*MatchState)

	bystanderID := "user-1"
	if state.Session.ActivePlayerID() == bystanderID {
		bystanderID = "user-2"
	}
	bystander := state.Session.Player(bystanderID)

	payload, _ := json.Marshal(map[string]any{"cardIds": []string{bystander.Hand[0].ID}})
	dispatcher.broadcasts = nil
	raw = handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.MatchData{
		mockMatchData{mockPresence: mockPresence{userID: bystanderID}, opCode: OpPlayCards, data: payload},
	})
	state = raw.(*MatchState)

	if dispatcher.countOp(OpGameError) != 1 {
		t.Fatalf("expected one error message, ops %v", dispatcher.opCodes())
	}
	for _, b := range dispatcher.broadcasts {
		if b.opCode != OpGameError {
			continue
		}
		if len(b.recipients) != 1 || b.recipients[0].GetUserId() != bystanderID {
			t.Fatal("error must be targeted at the offending player only")
		}
		var msg serverMessage
		if err := json.Unmarshal(b.data, &msg); err != nil {
			t.Fatalf("error payload is not valid JSON: %v", err)
		}
		if msg.Type != "error" || msg.Params["message"] == "" {
			t.Fatalf("unexpected error payload: %+v", msg)
		}
	}
	if len(bystander.Hand) != 17 {
		t.Fatal("rejected play must leave the hand untouched")
	}
}

func TestMatchLeave_TerminatesWhenEmpty(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1")

	raw := handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 5, state, []runtime.Presence{
		mockPresence{userID: "user-1", username: "user-1"},
	})
	if raw != nil {
		t.Fatalf("empty match should terminate, got %T", raw)
	}
}

func TestDispatchEvents_WonSettlesScores(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1", "user-2")

	economy := &mockEconomy{}
	state.Economy = economy
	state.Session.Player("user-1").Score = 5
	state.Session.Player("user-2").Score = 0

	handler.dispatchEvents(context.Background(), state, dispatcher, noopLogger{}, []app.Event{
		{Kind: app.EventWon, Params: map[string]any{"name": "user-1"}},
	})

	if len(economy.updates) != 1 {
		t.Fatalf("wallet updates = %d, want 1 (zero scores skipped)", len(economy.updates))
	}
	if economy.updates[0].UserID != "user-1" || economy.updates[0].Amount != 50 {
		t.Fatalf("update = %+v, want 50 coins for user-1", economy.updates[0])
	}
	if dispatcher.countOp(OpGameWon) != 1 {
		t.Fatalf("expected a won broadcast, ops %v", dispatcher.opCodes())
	}
}

func TestProcessBots_FillsSoloLobby(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1")
	state.BotsEnabled = true
	state.BotAutoFillDelay = 2
	state.LastSoloTick = 8
	state.Tick = 10

	if !handler.processBots(context.Background(), state, dispatcher, noopLogger{}) {
		t.Fatal("auto-fill should report a state change")
	}

	botCount := 0
	for _, p := range state.Session.Players() {
		if bot.IsBot(p.ID) {
			botCount++
		}
	}
	if botCount != 2 {
		t.Fatalf("bot count = %d, want 2", botCount)
	}
	if state.LastSoloTick != 0 {
		t.Fatalf("auto-fill timer should reset, got %d", state.LastSoloTick)
	}
	if state.Session.Game().IsPlaying() {
		t.Fatal("bots alone must not start the round; the human readies up")
	}

	// The human readying up now starts the round since bots are ready.
	raw := handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 11, state, []runtime.MatchData{
		mockMatchData{mockPresence: mockPresence{userID: "user-1"}, opCode: OpReady},
	})
	state = raw.(*MatchState)
	if !state.Session.Game().IsPlaying() {
		t.Fatalf("phase = %s after human ready, want playing", state.Session.Game().Phase)
	}
}

func TestDispatchEvents_SkipsDisconnectedRecipients(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, "user-1")
	dispatcher.broadcasts = nil

	handler.dispatchEvents(context.Background(), state, dispatcher, noopLogger{}, []app.Event{
		{Kind: app.EventTurn, Params: map[string]any{}, Recipients: []string{"ghost"}},
	})

	if len(dispatcher.broadcasts) != 0 {
		t.Fatalf("event for a disconnected recipient must not be broadcast, ops %v", dispatcher.opCodes())
	}
}
