package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type GameConfig struct {
	MaxPlayers              int `json:"max_players"`
	GameDurationSeconds     int `json:"game_duration_seconds"`
	AwardingDurationSeconds int `json:"awarding_duration_seconds"`
	JouerAllowance          int `json:"jouer_allowance"`
	// CoinsPerPoint converts a round score into wallet coins at settlement.
	CoinsPerPoint int64 `json:"coins_per_point"`
	WelcomeBonus  int64 `json:"welcome_bonus"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetMaxPlayers returns the configured table size, or the default of 6.
func GetMaxPlayers() int {
	if cfg == nil || cfg.MaxPlayers <= 0 {
		return 6
	}
	return cfg.MaxPlayers
}

// GetCoinsPerPoint returns the settlement rate, or a safe default.
func GetCoinsPerPoint() int64 {
	if cfg == nil || cfg.CoinsPerPoint <= 0 {
		return 10
	}
	return cfg.CoinsPerPoint
}

// GetWelcomeBonus returns the coins granted to a fresh account.
func GetWelcomeBonus() int64 {
	if cfg == nil || cfg.WelcomeBonus <= 0 {
		return 1000
	}
	return cfg.WelcomeBonus
}
