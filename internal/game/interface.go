// Package game defines the interface and registry for single-player
// instant games such as the slot machine and the coin flip.
package game

import (
	"context"
	"time"
)

// Player parameters passed to Play.
const (
	ParamUser    = "user"    // display name, string
	ParamBalance = "balance" // balance before the play, int64
)

// GameResult represents the outcome of a game play.
type GameResult struct {
	Payout      int64          // Net change (positive = win, negative = loss, 0 = push)
	Description string         // Chat text
	Details     map[string]any // Additional game-specific details
	Whisper     bool           // deliver Description privately instead of in chat
}

// Game defines the interface that all instant games implement.
type Game interface {
	// Name returns the game's display name.
	Name() string

	// Command returns the command that triggers this game (e.g., "spin").
	Command() string

	// Description returns a brief description of the game.
	Description() string

	// Play executes the game logic and returns the result. It never
	// touches balances; the caller applies Payout.
	Play(ctx context.Context, userID int64, bet int64, params map[string]any) (*GameResult, error)

	// ValidateBet checks if the bet amount and parameters are valid.
	ValidateBet(bet int64, params map[string]any) error

	// MaxBet returns the maximum allowed bet, 0 if there is none.
	MaxBet() int64

	// Cooldown is the per-user wait between plays.
	Cooldown() time.Duration

	// GlobalCooldown is the wait between any two plays in the bot.
	GlobalCooldown() time.Duration
}
