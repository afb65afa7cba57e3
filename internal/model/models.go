// Package model defines the persisted data models of the bot.
package model

import "time"

// User is a chat member's point account.
type User struct {
	TelegramID     int64     `db:"telegram_id"`
	Username       string    `db:"username"`
	Balance        int64     `db:"balance"`
	LastDailyClaim int64     `db:"last_daily_claim"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Transaction is one balance change.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// HauntEntry is a journaled stake in a haunted house round. SettledAt is
// nil until the round resolves or the stake is refunded.
type HauntEntry struct {
	ID        int64      `db:"id"`
	RoundID   string     `db:"round_id"`
	UserID    int64      `db:"user_id"`
	Username  string     `db:"username"`
	Stake     int64      `db:"stake"`
	JoinedAt  time.Time  `db:"joined_at"`
	SettledAt *time.Time `db:"settled_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial  = "initial"   // Initial balance on account creation
	TxTypeDaily    = "daily"     // Daily reward claim
	TxTypeSpin     = "spin"      // Slot machine result
	TxTypeHauntBet = "haunt_bet" // Haunted house stake
	TxTypeHauntWin = "haunt_win" // Haunted house payout or refund
	TxTypeAdminSub = "admin_sub" // Removed by an admin
)

// GameTransactionTypes returns the transaction types produced by games.
func GameTransactionTypes() []string {
	return []string{TxTypeSpin, TxTypeHauntBet, TxTypeHauntWin}
}
