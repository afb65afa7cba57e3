package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/pkg/lock"
	"chat-gamble-bot/internal/repository"
	"chat-gamble-bot/internal/service"
)

// AdminHandler handles the admin balance commands. Routes are expected to
// sit behind the admin middleware.
type AdminHandler struct {
	accountService *service.AccountService
	userLock       *lock.UserLock
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accountService *service.AccountService, userLock *lock.UserLock) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
		userLock:       userLock,
	}
}

// HandleHauntPayout credits a haunt payout the round could not deliver.
// Format: /haunt_payout <user_id> <amount>
func (h *AdminHandler) HandleHauntPayout(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, err := parseAdminArgs(c, "/haunt_payout")
	if err != nil {
		return c.Reply(err.Error())
	}

	h.userLock.Lock(targetID)
	defer h.userLock.Unlock(targetID)

	desc := fmt.Sprintf("manual payout by admin %d", sender.ID)
	user, err := h.accountService.UpdateBalance(context.Background(), targetID, amount, model.TxTypeHauntWin, &desc)
	if err != nil {
		return c.Reply(adminFailure(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", "haunt_payout").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Paid %d bones to %s (id %d). Balance: %d bones.",
		amount, adminTargetName(user), targetID, user.Balance))
}

// HandleAdminSub takes bones back, for example after a payout was
// delivered twice. The balance never goes below zero.
// Format: /admin_sub <user_id> <amount>
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, err := parseAdminArgs(c, "/admin_sub")
	if err != nil {
		return c.Reply(err.Error())
	}

	h.userLock.Lock(targetID)
	defer h.userLock.Unlock(targetID)

	desc := fmt.Sprintf("removed by admin %d", sender.ID)
	user, err := h.accountService.AdjustBalance(context.Background(), targetID, -amount, model.TxTypeAdminSub, &desc)
	if err != nil {
		return c.Reply(adminFailure(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", "admin_sub").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Took %d bones from %s (id %d). Balance: %d bones.",
		amount, adminTargetName(user), targetID, user.Balance))
}

// parseAdminArgs reads <user_id> <amount>. The amount must be positive.
func parseAdminArgs(c tele.Context, command string) (int64, int64, error) {
	args := c.Args()
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("❌ Usage: %s <user_id> <amount>", command)
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, errors.New("❌ The user id must be a number.")
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		return 0, 0, errors.New("❌ The amount must be a positive whole number.")
	}

	return targetID, amount, nil
}

func adminFailure(err error) string {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return "❌ No such user."
	case errors.Is(err, repository.ErrInsufficientFunds):
		return "❌ That would leave the user below zero."
	default:
		log.Error().Err(err).Msg("Admin operation failed")
		return "❌ Operation failed, try again later."
	}
}

func adminTargetName(u *model.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.TelegramID, 10)
}
