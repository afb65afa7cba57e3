package service

import (
	"context"
	"errors"
	"fmt"

	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/pkg/lock"
	"chat-gamble-bot/internal/repository"
)

// Wallet exposes the account ledger to the haunted house. Each call holds
// the player's lock so a haunt stake never interleaves with a spin.
type Wallet struct {
	accounts *AccountService
	userLock *lock.UserLock
}

var _ haunt.BalanceStore = (*Wallet)(nil)

// NewWallet creates a Wallet over the account service.
func NewWallet(accounts *AccountService, userLock *lock.UserLock) *Wallet {
	return &Wallet{accounts: accounts, userLock: userLock}
}

// GetBalance returns the player's balance.
func (w *Wallet) GetBalance(ctx context.Context, playerID int64) (int64, error) {
	var balance int64
	err := w.userLock.WithLockContext(ctx, playerID, func() error {
		b, err := w.accounts.GetBalance(ctx, playerID)
		balance = b
		return err
	})
	return balance, err
}

// AdjustBalance debits a stake (negative delta) or credits a payout.
// Debits never overdraw.
func (w *Wallet) AdjustBalance(ctx context.Context, playerID int64, delta int64) error {
	txType, desc := model.TxTypeHauntWin, "haunted house payout"
	if delta < 0 {
		txType, desc = model.TxTypeHauntBet, "haunted house stake"
	}

	return w.userLock.WithLockContext(ctx, playerID, func() error {
		_, err := w.accounts.AdjustBalance(ctx, playerID, delta, txType, &desc)
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return fmt.Errorf("%w: %w", haunt.ErrInsufficientBalance, err)
		}
		return err
	})
}
