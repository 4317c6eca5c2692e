package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a joinable room.
	RpcQuickMatch = "quick_match"

	// RpcVoiceToken is the Nakama RPC id clients call to mint a voice channel token.
	RpcVoiceToken = "voice_token"

	// MatchNameJouer is the authoritative match handler name registered with Nakama.
	MatchNameJouer = "jouer_match"

	// LabelGame is the label value identifying this game's rooms in match listings.
	LabelGame = "jouer"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpReady     int64 = 1
	OpPlayCards int64 = 2
	OpBorrow    int64 = 3
	OpJouer     int64 = 4
	OpAckCard   int64 = 5

	// Server -> Client events
	OpPlayerJoined int64 = 101
	OpPlayerLeft   int64 = 102
	OpGameWaiting  int64 = 103
	OpGameStarted  int64 = 104
	OpGameStopped  int64 = 105
	OpGameWon      int64 = 106
	OpGameTimeout  int64 = 107
	OpTurnChanged  int64 = 108
	OpCardBorrow   int64 = 109
	OpCardJouer    int64 = 110
	OpStateSync    int64 = 111 // send privately
	OpGameError    int64 = 112
)
