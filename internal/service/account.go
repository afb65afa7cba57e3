// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/repository"
)

// Common errors for account operations.
var (
	ErrDailyAlreadyClaimed = errors.New("daily reward already claimed")
)

// UserStore is the subset of repository.UserRepository the services use.
type UserStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error)
	UpdateBalance(ctx context.Context, telegramID int64, amount int64) (*model.User, error)
	AdjustBalanceChecked(ctx context.Context, telegramID int64, amount int64) (*model.User, error)
	UpdateDailyClaim(ctx context.Context, telegramID int64, claimTime int64) (*model.User, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
}

// TransactionStore records balance changes.
type TransactionStore interface {
	Create(ctx context.Context, userID int64, amount int64, txType string, description *string) (*model.Transaction, error)
	SumByType(ctx context.Context, userID int64, types []string) (int64, error)
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
}

var (
	_ UserStore        = (*repository.UserRepository)(nil)
	_ TransactionStore = (*repository.TransactionRepository)(nil)
)

// DailyResult describes a /daily attempt.
type DailyResult struct {
	Claimed   bool
	Reward    int64
	Balance   int64
	Remaining time.Duration
}

// AccountService handles user account operations.
type AccountService struct {
	userRepo    UserStore
	txRepo      TransactionStore
	dailyReward int64
	cooldownHrs int
	now         func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	userRepo UserStore,
	txRepo TransactionStore,
	dailyReward int64,
	cooldownHours int,
) *AccountService {
	return &AccountService{
		userRepo:    userRepo,
		txRepo:      txRepo,
		dailyReward: dailyReward,
		cooldownHrs: cooldownHours,
		now:         time.Now,
	}
}

// EnsureUser ensures a user exists, creating one if necessary.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.userRepo.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if created {
		desc := "welcome bones"
		s.record(ctx, telegramID, user.Balance, model.TxTypeInitial, &desc)
		return user, true, nil
	}

	if user.Username != username && username != "" {
		if err := s.userRepo.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update username")
		}
		user.Username = username
	}
	return user, false, nil
}

// GetBalance retrieves a user's current balance.
func (s *AccountService) GetBalance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Balance, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, telegramID)
}

// GameNet returns the user's net result across all games.
func (s *AccountService) GameNet(ctx context.Context, telegramID int64) (int64, error) {
	return s.txRepo.SumByType(ctx, telegramID, model.GameTransactionTypes())
}

// History returns the user's latest transactions, newest first.
func (s *AccountService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	return s.txRepo.GetByUserID(ctx, telegramID, limit)
}

// UpdateBalance adds amount (which may be negative) to a user's balance and
// records a transaction for the change.
func (s *AccountService) UpdateBalance(ctx context.Context, telegramID int64, amount int64, txType string, description *string) (*model.User, error) {
	user, err := s.userRepo.UpdateBalance(ctx, telegramID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	s.record(ctx, telegramID, amount, txType, description)
	return user, nil
}

// AdjustBalance is UpdateBalance with an overdraft guard. A change that
// would leave the balance negative fails with repository.ErrInsufficientFunds
// and records nothing.
func (s *AccountService) AdjustBalance(ctx context.Context, telegramID int64, amount int64, txType string, description *string) (*model.User, error) {
	user, err := s.userRepo.AdjustBalanceChecked(ctx, telegramID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}
	s.record(ctx, telegramID, amount, txType, description)
	return user, nil
}

// record writes the transaction log. The balance has already changed, so a
// failure here is logged and not returned.
func (s *AccountService) record(ctx context.Context, telegramID int64, amount int64, txType string, description *string) {
	if amount == 0 {
		return
	}
	if _, err := s.txRepo.Create(ctx, telegramID, amount, txType, description); err != nil {
		log.Error().
			Err(err).
			Int64("user_id", telegramID).
			Int64("amount", amount).
			Str("type", txType).
			Msg("Failed to record transaction")
	}
}

// ClaimDaily attempts to claim the daily reward for a user. When the
// cooldown has not passed the result is not Claimed and carries the time
// remaining.
func (s *AccountService) ClaimDaily(ctx context.Context, telegramID int64) (*DailyResult, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to check daily claim eligibility: %w", err)
	}

	now := s.now()
	ok, remaining := repository.DailyClaimEligibility(user.LastDailyClaim, s.cooldownHrs, now)
	if !ok {
		return &DailyResult{Balance: user.Balance, Remaining: remaining}, nil
	}

	if _, err := s.userRepo.UpdateDailyClaim(ctx, telegramID, now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to update daily claim time: %w", err)
	}

	desc := "daily bones"
	user, err = s.UpdateBalance(ctx, telegramID, s.dailyReward, model.TxTypeDaily, &desc)
	if err != nil {
		return nil, fmt.Errorf("failed to add daily reward: %w", err)
	}

	return &DailyResult{Claimed: true, Reward: s.dailyReward, Balance: user.Balance}, nil
}
