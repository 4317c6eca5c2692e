package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"jouer/internal/app"
	"jouer/internal/bot"
	"jouer/internal/config"
	"jouer/internal/domain"
	"jouer/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Label is the JSON match label indexed by Nakama's match listing queries.
type Label struct {
	Open  bool   `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// serverMessage is the envelope for every server -> client event.
type serverMessage struct {
	Type   string         `json:"type"`
	Ts     int64          `json:"ts"`
	From   string         `json:"from"`
	Params map[string]any `json:"params"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Session   *app.Session                `json:"-"` // Authoritative room state and rules
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	Tick      int64                       `json:"tick"`
	Economy   ports.EconomyPort           `json:"-"` // Interface to Nakama wallet

	BotsEnabled      bool                  `json:"bots_enabled"`
	BotMinDelay      int                   `json:"bot_min_delay"`       // Min seconds a bot waits before acting
	BotMaxDelay      int                   `json:"bot_max_delay"`       // Max seconds a bot waits before acting
	BotAutoFillDelay int                   `json:"bot_auto_fill_delay"` // Seconds a solo human waits before bots join
	BotWaitUntil     int64                 `json:"bot_wait_until"`      // Tick when the active bot acts
	LastSoloTick     int64                 `json:"last_solo_tick"`      // Tick when a solo human started waiting
	Bots             map[string]*bot.Agent `json:"-"`
}

// HumanCount returns the number of seated non-bot players.
func (ms *MatchState) HumanCount() int {
	count := 0
	for _, p := range ms.Session.Players() {
		if !bot.IsBot(p.ID) {
			count++
		}
	}
	return count
}

// maxRoomNameLen bounds room names on the wire.
const maxRoomNameLen = 24

func clampPlayers(n int) int {
	if n < app.MinPlayersToStart {
		return app.MinPlayersToStart
	}
	if max := config.GetMaxPlayers(); n > max {
		return max
	}
	return n
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	roomName := MatchNameJouer
	if v, ok := params["room_name"].(string); ok && v != "" {
		if runes := []rune(v); len(runes) > maxRoomNameLen {
			v = string(runes[:maxRoomNameLen])
		}
		roomName = v
	}
	mode := "standard"
	if v, ok := params["mode"].(string); ok && v != "" {
		mode = v
	}
	maxPlayers := config.GetMaxPlayers()
	if v, ok := params["max_players"].(float64); ok {
		maxPlayers = clampPlayers(int(v))
	}

	session := app.NewSession(roomName, maxPlayers, mode, nil)
	if cfg := config.GetGameConfig(); cfg != nil {
		if cfg.GameDurationSeconds > 0 {
			session.Game().GameDuration = time.Duration(cfg.GameDurationSeconds) * time.Second
		}
		if cfg.AwardingDurationSeconds > 0 {
			session.Game().AwardingDuration = time.Duration(cfg.AwardingDurationSeconds) * time.Second
		}
		session.SetJouerAllowance(cfg.JouerAllowance)
	}

	state := &MatchState{
		Session:   session,
		Presences: make(map[string]runtime.Presence),
		Economy:   NewNakamaEconomyAdapter(nk),
		Bots:      make(map[string]*bot.Agent),
	}

	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["jouer_bots_enabled"]; ok {
			state.BotsEnabled = val == "true"
		}
		if i, err := strconv.Atoi(env["jouer_bot_min_delay_sec"]); err == nil {
			state.BotMinDelay = i
		}
		if i, err := strconv.Atoi(env["jouer_bot_max_delay_sec"]); err == nil {
			state.BotMaxDelay = i
		}
		if i, err := strconv.Atoi(env["jouer_bot_auto_fill_delay_sec"]); err == nil {
			state.BotAutoFillDelay = i
		}
	}
	if state.BotMinDelay <= 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay + 2
	}
	if state.BotAutoFillDelay <= 0 {
		state.BotAutoFillDelay = 5
	}

	labelBytes, err := json.Marshal(Label{Open: true, Game: LabelGame, Phase: string(domain.PhaseWaiting)})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // lifecycle deadlines are second-granular
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Reconnects re-attach to their seat; new joins need a free one.
	if matchState.Session.Player(presence.GetUserId()) != nil {
		return state, true, ""
	}
	if matchState.Session.PlayerCount() >= matchState.Session.Game().MaxPlayers {
		return state, false, "match_full"
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		events, err := matchState.Session.PlayerAdd(p.GetUserId(), p.GetUsername())
		if err != nil {
			logger.Warn("MatchJoin: User %s joined but could not be seated: %v", p.GetUserId(), err)
			continue
		}
		mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.syncState(ctx, matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		events, err := matchState.Session.PlayerRemove(p.GetUserId())
		if err != nil {
			logger.Warn("MatchLeave: User %s left without a seat: %v", p.GetUserId(), err)
			continue
		}
		mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.syncState(ctx, matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	mutated := false
	for _, msg := range messages {
		if mh.handleMessage(ctx, matchState, dispatcher, logger, msg) {
			mutated = true
		}
	}

	if matchState.BotsEnabled && mh.processBots(ctx, matchState, dispatcher, logger) {
		mutated = true
	}

	// Re-evaluate the lifecycle once per tick: round timeout, a won round,
	// the award window elapsing, a lonely room falling back to the lobby.
	tickEvents := matchState.Session.Update()
	mh.dispatchEvents(ctx, matchState, dispatcher, logger, tickEvents)

	if mutated || len(tickEvents) > 0 {
		mh.updateLabel(matchState, dispatcher, logger)
		mh.syncState(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

// handleMessage dispatches one client message to the session and reports
// whether it mutated room state.
func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) bool {
	senderID := msg.GetUserId()

	var events []app.Event
	var err error

	switch msg.GetOpCode() {
	case OpReady:
		events, err = state.Session.SetReady(senderID)

	case OpPlayCards:
		var req struct {
			CardIDs []string `json:"cardIds"`
		}
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			logger.Warn("MatchLoop: Invalid play payload from %s: %v", senderID, jsonErr)
			return false
		}
		events, err = state.Session.PlayCards(senderID, req.CardIDs)

	case OpBorrow, OpJouer:
		var req struct {
			CardIndex int `json:"cardIndex"`
		}
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			logger.Warn("MatchLoop: Invalid take payload from %s: %v", senderID, jsonErr)
			return false
		}
		action := app.ActionBorrow
		if msg.GetOpCode() == OpJouer {
			action = app.ActionJouer
		}
		events, err = state.Session.TryGetCard(senderID, req.CardIndex, action)

	case OpAckCard:
		var req struct {
			CardIndex   int  `json:"cardIndex"`
			Inverse     bool `json:"inverse"`
			TargetIndex int  `json:"targetIndex"`
		}
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			logger.Warn("MatchLoop: Invalid ack payload from %s: %v", senderID, jsonErr)
			return false
		}
		events, err = state.Session.AckGetCard(senderID, req.CardIndex, req.Inverse, req.TargetIndex)

	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		return false
	}

	if err != nil {
		logger.Warn("MatchLoop: User %s op %d rejected: %v", senderID, msg.GetOpCode(), err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return false
	}

	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
	return true
}

// botFillTarget is the table size bots top a solo human up to.
const botFillTarget = 3

// processBots fills a lonely lobby with bots and plays the active bot's turn.
// Reports whether room state changed.
func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) bool {
	session := state.Session
	mutated := false

	// 1. Auto-fill: a solo human waits BotAutoFillDelay seconds, then bots
	// join until the table can start. Humans still gate the start by
	// readying up; bots ready immediately.
	if session.Game().IsWaiting() {
		if state.HumanCount() == 1 && session.PlayerCount() < botFillTarget {
			if state.LastSoloTick == 0 {
				state.LastSoloTick = state.Tick
				logger.Debug("processBots: Solo human detected, starting auto-fill timer.")
			}
			if state.Tick-state.LastSoloTick >= int64(state.BotAutoFillDelay) {
				for slot := 0; slot < 2*botFillTarget && session.PlayerCount() < botFillTarget; slot++ {
					identity := bot.GetIdentity(slot)
					if session.Player(identity.UserID) != nil {
						continue
					}

					events, err := session.PlayerAdd(identity.UserID, identity.Name)
					if err != nil {
						logger.Error("processBots: Failed to seat bot %s: %v", identity.UserID, err)
						break
					}
					state.Bots[identity.UserID] = bot.NewAgent(identity.UserID)
					mh.dispatchEvents(ctx, state, dispatcher, logger, events)

					readyEvents, err := session.SetReady(identity.UserID)
					if err != nil {
						logger.Error("processBots: Failed to ready bot %s: %v", identity.UserID, err)
					}
					mh.dispatchEvents(ctx, state, dispatcher, logger, readyEvents)

					logger.Info("processBots: Added bot %s (%s)", identity.Name, identity.UserID)
					mutated = true
				}
				state.LastSoloTick = 0
			}
		} else {
			state.LastSoloTick = 0
		}
	}

	// 2. Play the active bot's turn after a short human-like delay.
	if session.Game().IsPlaying() {
		activeID := session.ActivePlayerID()
		if !bot.IsBot(activeID) {
			state.BotWaitUntil = 0
			return mutated
		}

		if state.BotWaitUntil == 0 {
			delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
			state.BotWaitUntil = state.Tick + int64(delay)
			return mutated
		}
		if state.Tick < state.BotWaitUntil {
			return mutated
		}
		state.BotWaitUntil = 0

		agent, ok := state.Bots[activeID]
		if !ok {
			agent = bot.NewAgent(activeID)
			state.Bots[activeID] = agent
		}

		move, ok := agent.ChooseMove(session, session.Table().Cards)
		if !ok {
			return mutated
		}

		switch move.Kind {
		case bot.MovePlay:
			events, err := session.PlayCards(activeID, move.CardIDs)
			if err != nil {
				logger.Error("processBots: Bot %s play rejected: %v", activeID, err)
				return mutated
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, events)
		case bot.MoveBorrow:
			events, err := session.TryGetCard(activeID, move.CardIndex, app.ActionBorrow)
			if err != nil {
				logger.Error("processBots: Bot %s borrow rejected: %v", activeID, err)
				return mutated
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, events)

			// Bots confirm their own offers immediately.
			ackEvents, err := session.AckGetCard(activeID, move.CardIndex, false, move.TargetIndex)
			if err != nil {
				logger.Error("processBots: Bot %s ack rejected: %v", activeID, err)
				return mutated
			}
			mh.dispatchEvents(ctx, state, dispatcher, logger, ackEvents)
		}
		mutated = true
	}

	return mutated
}

// dispatchEvents converts session events into wire messages. A round-ending
// event also settles the scores into player wallets.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		if ev.Kind == app.EventWon || ev.Kind == app.EventTimeout {
			mh.settleRound(ctx, state, logger)
		}

		payload, err := json.Marshal(serverMessage{
			Type:   string(ev.Kind),
			Ts:     time.Now().UnixMilli(),
			From:   "server",
			Params: ev.Params,
		})
		if err != nil {
			logger.Error("Failed to marshal event %s: %v", ev.Kind, err)
			continue
		}

		// Determine recipients (default to broadcast).
		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := state.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			// If the intended recipients are all disconnected we MUST NOT
			// fall back to broadcasting private data to everyone else.
			if len(recipients) == 0 {
				continue
			}
		}

		dispatcher.BroadcastMessage(eventOpCode(ev.Kind), payload, recipients, nil, true)
	}
}

// settleRound converts the finished round's scores into wallet coins.
func (mh *matchHandler) settleRound(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Economy == nil {
		return
	}

	rate := config.GetCoinsPerPoint()
	scores := state.Session.Scores()
	updates := make([]ports.WalletUpdate, 0, len(scores))
	for userID, score := range scores {
		// Bots hold no wallets.
		if score <= 0 || bot.IsBot(userID) {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: userID,
			Amount: int64(score) * rate,
			Metadata: map[string]interface{}{
				"match_id": ctx.Value(runtime.RUNTIME_CTX_MATCH_ID),
				"reason":   "round_settlement",
			},
		})
	}
	if len(updates) == 0 {
		return
	}

	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to settle round: %v", err)
	}
}

// sendError sends a targeted error message to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	payload, err := json.Marshal(serverMessage{
		Type: "error",
		Ts:   time.Now().UnixMilli(),
		From: "server",
		Params: map[string]any{
			"code":    code,
			"message": message,
		},
	})
	if err != nil {
		logger.Error("Failed to marshal error message: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, payload, []runtime.Presence{presence}, nil, true)
}

// syncState sends each connected player their own view of the room. Views are
// per-viewer so a player only ever receives their own hand and wallet.
func (mh *matchHandler) syncState(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for userID, presence := range state.Presences {
		snapshot := snapshotForViewer(state.Session, userID)
		if state.Economy != nil {
			balance, err := state.Economy.GetBalance(ctx, userID)
			if err != nil {
				logger.Warn("Failed to read wallet for %s: %v", userID, err)
			} else {
				snapshot.Balance = balance
			}
		}
		payload, err := json.Marshal(snapshot)
		if err != nil {
			logger.Error("Failed to marshal snapshot for %s: %v", userID, err)
			continue
		}
		dispatcher.BroadcastMessage(OpStateSync, payload, []runtime.Presence{presence}, nil, true)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	game := state.Session.Game()
	label := Label{
		Open:  game.IsWaiting() && state.Session.PlayerCount() < game.MaxPlayers,
		Game:  LabelGame,
		Phase: string(game.Phase),
	}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

// eventOpCode maps a session event kind to its wire opcode.
func eventOpCode(kind app.EventKind) int64 {
	switch kind {
	case app.EventJoined:
		return OpPlayerJoined
	case app.EventLeft:
		return OpPlayerLeft
	case app.EventWaiting:
		return OpGameWaiting
	case app.EventStart:
		return OpGameStarted
	case app.EventStop:
		return OpGameStopped
	case app.EventWon:
		return OpGameWon
	case app.EventTimeout:
		return OpGameTimeout
	case app.EventTurn:
		return OpTurnChanged
	case app.EventBorrow:
		return OpCardBorrow
	case app.EventJouer:
		return OpCardJouer
	default:
		return OpGameError
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
