// Package flip implements the wager-free coin flip.
package flip

import (
	"context"
	"fmt"
	"time"

	"chat-gamble-bot/internal/game"
	"chat-gamble-bot/internal/pkg/rng"
)

// Sides of the coin.
const (
	Heads = "heads"
	Tails = "tails"
)

// FlipGame implements game.Game. It never moves bones.
type FlipGame struct {
	src            rng.Source
	userCooldown   time.Duration
	globalCooldown time.Duration
}

var _ game.Game = (*FlipGame)(nil)

// New creates a FlipGame.
func New(src rng.Source, userCooldown, globalCooldown time.Duration) *FlipGame {
	if src == nil {
		src = rng.Default()
	}
	return &FlipGame{src: src, userCooldown: userCooldown, globalCooldown: globalCooldown}
}

func (g *FlipGame) Name() string                  { return "Coin Flip" }
func (g *FlipGame) Command() string               { return "flip" }
func (g *FlipGame) Description() string           { return "Flip a coin" }
func (g *FlipGame) MaxBet() int64                 { return 0 }
func (g *FlipGame) Cooldown() time.Duration       { return g.userCooldown }
func (g *FlipGame) GlobalCooldown() time.Duration { return g.globalCooldown }

// ValidateBet accepts anything; the flip has no stake.
func (g *FlipGame) ValidateBet(int64, map[string]any) error { return nil }

// Play flips the coin.
func (g *FlipGame) Play(_ context.Context, _ int64, _ int64, params map[string]any) (*game.GameResult, error) {
	side, flair := Heads, "🐶"
	if g.src.Bool() {
		side, flair = Tails, "🐕"
	}
	return &game.GameResult{
		Description: fmt.Sprintf("%s flips a coin and it lands on %s %s", game.UserParam(params), side, flair),
		Details:     map[string]any{"side": side},
	}, nil
}
