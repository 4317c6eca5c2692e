package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"jouer/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// rpcVoiceToken handles the RPC call from the client to mint a voice token.
// Payload: {"action": "login" | "join", "channelName": "..."}
func rpcVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("Unauthenticated", 16) // UNAUTHENTICATED
	}

	var req struct {
		Action      string `json:"action"`
		ChannelName string `json:"channelName"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}

	// Voice credentials come from the runtime environment.
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	issuer := env["voice_issuer"]
	secret := env["voice_secret"]
	domain := env["voice_domain"]
	if issuer == "" || secret == "" || domain == "" {
		issuer = "test-issuer"
		secret = "test-secret"
		domain = "voice.test"
		logger.Warn("Voice credentials missing from env, using test defaults.")
	}

	service := app.NewVoiceService(secret, issuer, domain)
	token, err := service.GenerateToken(userID, req.Action, req.ChannelName)
	if err != nil {
		logger.Error("Failed to generate voice token: %v", err)
		return "", runtime.NewError("Invalid voice token request", 3)
	}

	res := map[string]string{
		"token": token,
	}
	resBytes, _ := json.Marshal(res)
	return string(resBytes), nil
}
