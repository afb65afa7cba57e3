// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/pkg/lock"
	"chat-gamble-bot/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService *service.AccountService
	userLock       *lock.UserLock
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, userLock *lock.UserLock) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		userLock:       userLock,
	}
}

// displayName is the name used in chat text: the username, or the first
// name for users without one.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// HandleStart handles the /start command.
// Creates a new account with the welcome balance if the user doesn't exist.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	username := displayName(sender)

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	user, created, err := h.accountService.EnsureUser(ctx, sender.ID, username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to create account")
		return c.Reply("❌ Could not open your account, try again later.")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎃 Welcome @%s!\n\n"+
				"You start with %d bones.\n\n"+
				"Commands:\n"+
				"/balance - show your bones\n"+
				"/daily - claim daily bones\n"+
				"/history - your last bone movements\n"+
				"/haunt <bones> - storm the haunted house with others\n"+
				"/spin [bones] - pull the slot machine\n"+
				"/flip - flip a coin",
			username, user.Balance,
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back @%s! You have %d bones.", username, user.Balance))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, _, err := h.accountService.EnsureUser(ctx, sender.ID, displayName(sender))
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load balance")
		return c.Reply("❌ Could not load your balance, try again later.")
	}

	msg := fmt.Sprintf("💰 @%s has %d bones.", displayName(sender), user.Balance)
	if net, err := h.accountService.GameNet(ctx, sender.ID); err == nil && net != 0 {
		msg += fmt.Sprintf("\n🎲 Games: %+d", net)
	}
	return c.Reply(msg)
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	if _, _, err := h.accountService.EnsureUser(ctx, sender.ID, displayName(sender)); err != nil {
		return c.Reply("❌ Something went wrong, try again later.")
	}

	res, err := h.accountService.ClaimDaily(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Daily claim failed")
		return c.Reply("❌ Could not claim your daily bones, try again later.")
	}

	if !res.Claimed {
		r := res.Remaining
		return c.Reply(fmt.Sprintf("⏰ Come back in %dh %dm %ds.", int(r.Hours()), int(r.Minutes())%60, int(r.Seconds())%60))
	}
	return c.Reply(fmt.Sprintf("✅ +%d bones! You now have %d.", res.Reward, res.Balance))
}

const historyLimit = 10

// HandleHistory handles /history, listing the latest balance changes.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	txs, err := h.accountService.History(context.Background(), sender.ID, historyLimit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load history")
		return c.Reply("❌ Could not load your history, try again later.")
	}
	if len(txs) == 0 {
		return c.Reply("📜 No bones have moved yet. Try /start.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 Last %d for @%s:", len(txs), displayName(sender))
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n%s %+d %s", tx.CreatedAt.Format("01-02 15:04"), tx.Amount, tx.Type)
		if tx.Description != nil && *tx.Description != "" {
			fmt.Fprintf(&b, " (%s)", *tx.Description)
		}
	}
	return c.Reply(b.String())
}
