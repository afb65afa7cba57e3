package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/game"
	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/pkg/lock"
	"chat-gamble-bot/internal/repository"
	"chat-gamble-bot/internal/service"
)

// wagered games take a bet and fall back to a default when none is given.
type wagered interface {
	DefaultBet() int64
}

type minBetter interface {
	MinBet() int64
}

// GameHandler runs the instant games in the registry.
type GameHandler struct {
	accountService *service.AccountService
	gameRegistry   *game.Registry
	userLock       *lock.UserLock
	cooldowns      *Cooldowns
	sender         Sender
}

// NewGameHandler creates a new GameHandler. sender delivers whispered results.
func NewGameHandler(
	accountService *service.AccountService,
	gameRegistry *game.Registry,
	userLock *lock.UserLock,
	cooldowns *Cooldowns,
	sender Sender,
) *GameHandler {
	return &GameHandler{
		accountService: accountService,
		gameRegistry:   gameRegistry,
		userLock:       userLock,
		cooldowns:      cooldowns,
		sender:         sender,
	}
}

// Handler returns the handler for a registered game command.
func (h *GameHandler) Handler(command string) tele.HandlerFunc {
	return func(c tele.Context) error {
		g, ok := h.gameRegistry.Get(command)
		if !ok {
			return nil
		}
		if _, ok := g.(wagered); ok {
			return h.playWagered(c, g)
		}
		return h.playFree(c, g)
	}
}

func (h *GameHandler) onCooldown(userID int64, g game.Game) bool {
	wait := h.cooldowns.Remaining(userID, g.Command(), g.Cooldown(), g.GlobalCooldown())
	if wait > 0 {
		log.Debug().Int64("user_id", userID).Str("game", g.Command()).Dur("wait", wait).Msg("Game on cooldown")
		return true
	}
	return false
}

func (h *GameHandler) playFree(c tele.Context, g game.Game) error {
	sender := c.Sender()
	if sender == nil || h.onCooldown(sender.ID, g) {
		return nil
	}

	res, err := g.Play(context.Background(), sender.ID, 0, map[string]any{game.ParamUser: displayName(sender)})
	if err != nil {
		log.Error().Err(err).Str("game", g.Command()).Msg("Game failed")
		return nil
	}
	h.cooldowns.Mark(sender.ID, g.Command())
	return h.deliver(c, res)
}

func (h *GameHandler) playWagered(c tele.Context, g game.Game) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	name := displayName(sender)

	if _, _, err := h.accountService.EnsureUser(ctx, sender.ID, name); err != nil {
		return c.Reply("❌ Something went wrong, try again later.")
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	if h.onCooldown(sender.ID, g) {
		return nil
	}

	balance, err := h.accountService.GetBalance(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load balance")
		return c.Reply("❌ Could not load your balance, try again later.")
	}

	bet := g.(wagered).DefaultBet()
	if args := c.Args(); len(args) > 0 {
		bet, err = haunt.ParseStake(strings.Join(args, " "), balance)
		if err != nil {
			return h.whisper(c, fmt.Sprintf("Usage: /%s <bones|k|%%|all>", g.Command()))
		}
	}

	params := map[string]any{game.ParamUser: name, game.ParamBalance: balance}
	if err := g.ValidateBet(bet, params); err != nil {
		return h.whisper(c, betMessage(g, err, bet))
	}

	res, err := g.Play(ctx, sender.ID, bet, params)
	if err != nil {
		log.Error().Err(err).Str("game", g.Command()).Int64("user_id", sender.ID).Msg("Game failed")
		return h.whisper(c, betMessage(g, err, bet))
	}

	if res.Payout != 0 {
		desc := fmt.Sprintf("%s bet %d", g.Command(), bet)
		if _, err := h.accountService.AdjustBalance(ctx, sender.ID, res.Payout, model.TxTypeSpin, &desc); err != nil {
			log.Error().Err(err).Int64("user_id", sender.ID).Int64("payout", res.Payout).Msg("Failed to apply game result")
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return h.whisper(c, betMessage(g, game.ErrInsufficientBalance, bet))
			}
			return c.Reply("❌ Something went wrong, your bones are untouched.")
		}
	}
	h.cooldowns.Mark(sender.ID, g.Command())

	log.Info().
		Int64("user_id", sender.ID).
		Str("game", g.Command()).
		Int64("bet", bet).
		Int64("payout", res.Payout).
		Msg("Game played")

	return h.deliver(c, res)
}

func betMessage(g game.Game, err error, bet int64) string {
	switch {
	case errors.Is(err, game.ErrInsufficientBalance):
		return fmt.Sprintf("You don't have enough bones to %s for %d bones :(", g.Command(), bet)
	case errors.Is(err, game.ErrBetTooLow):
		if m, ok := g.(minBetter); ok {
			return fmt.Sprintf("You have to bet at least %d bones! :(", m.MinBet())
		}
		return "That bet is too small."
	case errors.Is(err, game.ErrBetTooHigh):
		return fmt.Sprintf("You can bet at most %d bones.", g.MaxBet())
	default:
		return "You need to bet some bones."
	}
}

func (h *GameHandler) deliver(c tele.Context, res *game.GameResult) error {
	if res.Whisper {
		return h.whisper(c, res.Description)
	}
	return c.Send(res.Description)
}

// whisper sends text privately, replying in chat if that fails.
func (h *GameHandler) whisper(c tele.Context, text string) error {
	if sender := c.Sender(); sender != nil && h.sender != nil {
		if _, err := h.sender.Send(sender, text); err == nil {
			return nil
		}
	}
	return c.Reply(text)
}
