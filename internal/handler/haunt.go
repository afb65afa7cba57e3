package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/service"
)

const hauntCommand = "haunt"

// HauntRounds is the part of *haunt.Scheduler the handler drives.
type HauntRounds interface {
	OnJoinCommand(ctx context.Context, p haunt.Player, raw string)
	Status() haunt.Status
}

// HauntHandler handles /haunt and the admin status command.
type HauntHandler struct {
	rounds         HauntRounds
	accountService *service.AccountService
	announcer      *ChatAnnouncer
	cooldowns      *Cooldowns
	userCooldown   time.Duration
	globalCooldown time.Duration
}

// NewHauntHandler creates a new HauntHandler. The cooldowns throttle the
// command itself and are separate from the round cooldown.
func NewHauntHandler(
	rounds HauntRounds,
	accountService *service.AccountService,
	announcer *ChatAnnouncer,
	cooldowns *Cooldowns,
	userCooldown, globalCooldown time.Duration,
) *HauntHandler {
	return &HauntHandler{
		rounds:         rounds,
		accountService: accountService,
		announcer:      announcer,
		cooldowns:      cooldowns,
		userCooldown:   userCooldown,
		globalCooldown: globalCooldown,
	}
}

// HandleHaunt handles /haunt <bones>.
func (h *HauntHandler) HandleHaunt(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	name := displayName(sender)

	if wait := h.cooldowns.Remaining(sender.ID, hauntCommand, h.userCooldown, h.globalCooldown); wait > 0 {
		log.Debug().Int64("user_id", sender.ID).Dur("wait", wait).Msg("Haunt command on cooldown")
		return nil
	}

	if _, _, err := h.accountService.EnsureUser(ctx, sender.ID, name); err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure haunt player")
		return c.Reply("❌ Something went wrong, try again later.")
	}

	if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
		h.announcer.Remember(chat.ID)
	}

	h.rounds.OnJoinCommand(ctx, haunt.Player{ID: sender.ID, Name: name}, strings.Join(c.Args(), " "))
	h.cooldowns.Mark(sender.ID, hauntCommand)
	return nil
}

// HandleStatus handles the admin-only /haunt_status.
func (h *HauntHandler) HandleStatus(c tele.Context) error {
	st := h.rounds.Status()

	var b strings.Builder
	fmt.Fprintf(&b, "🏚 Haunted house: %s\n", st.Phase)
	if st.RoundID != "" {
		fmt.Fprintf(&b, "Round: %s\n", st.RoundID)
	}
	fmt.Fprintf(&b, "Players: %d, pool: %d bones\n", len(st.Players), st.Pool)
	if st.ResolvesAt != nil {
		fmt.Fprintf(&b, "Resolves in: %s\n", time.Until(*st.ResolvesAt).Round(time.Second))
	}
	if st.CooldownRemaining > 0 {
		fmt.Fprintf(&b, "Cooldown: %ds\n", st.CooldownRemaining)
	}
	if st.LastCategory != "" {
		fmt.Fprintf(&b, "Last round: %s\n", st.LastCategory)
	}
	return c.Reply(strings.TrimSuffix(b.String(), "\n"))
}
