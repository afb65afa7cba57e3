// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/model"
	"chat-gamble-bot/internal/pkg/db"
)

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestDB starts PostgreSQL, applies the schema and returns a pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() || !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	// a second run must be harmless
	require.NoError(t, db.Migrate(ctx, pool))

	return pool
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), user.TelegramID)
	assert.Equal(t, "testuser", user.Username)
	assert.Equal(t, int64(InitialBalance), user.Balance)
	assert.Equal(t, int64(0), user.LastDailyClaim)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetOrCreate(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, created, err := repo.GetOrCreate(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12345), user.TelegramID)

	user, created, err = repo.GetOrCreate(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(12345), user.TelegramID)
}

func TestUserRepository_UpdateBalance(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	user, err := repo.UpdateBalance(ctx, 12345, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), user.Balance)

	user, err = repo.UpdateBalance(ctx, 12345, -300)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), user.Balance)

	_, err = repo.UpdateBalance(ctx, 99999, 100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_AdjustBalanceChecked(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	user, err := repo.AdjustBalanceChecked(ctx, 12345, -1000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Balance)

	_, err = repo.AdjustBalanceChecked(ctx, 12345, -1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	user, err = repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Balance, "rejected debit must not change the balance")

	user, err = repo.AdjustBalanceChecked(ctx, 12345, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), user.Balance)

	_, err = repo.AdjustBalanceChecked(ctx, 99999, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_DailyClaim(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	canClaim, remaining, err := repo.CanClaimDaily(ctx, 12345, 24)
	require.NoError(t, err)
	assert.True(t, canClaim)
	assert.Equal(t, time.Duration(0), remaining)

	_, err = repo.UpdateDailyClaim(ctx, 12345, time.Now().Unix())
	require.NoError(t, err)

	canClaim, remaining, err = repo.CanClaimDaily(ctx, 12345, 24)
	require.NoError(t, err)
	assert.False(t, canClaim)
	assert.Positive(t, remaining)

	_, err = repo.UpdateDailyClaim(ctx, 12345, time.Now().Add(-25*time.Hour).Unix())
	require.NoError(t, err)

	canClaim, _, err = repo.CanClaimDaily(ctx, 12345, 24)
	require.NoError(t, err)
	assert.True(t, canClaim)
}

func TestUserRepository_UpdateUsername(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "oldname")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateUsername(ctx, 12345, "newname"))

	user, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "newname", user.Username)

	assert.ErrorIs(t, repo.UpdateUsername(ctx, 99999, "name"), ErrUserNotFound)
}

func TestDailyClaimEligibility(t *testing.T) {
	now := time.Date(2024, 10, 31, 12, 0, 0, 0, time.UTC)

	ok, remaining := DailyClaimEligibility(0, 24, now)
	assert.True(t, ok)
	assert.Zero(t, remaining)

	ok, remaining = DailyClaimEligibility(now.Add(-time.Hour).Unix(), 24, now)
	assert.False(t, ok)
	assert.Equal(t, 23*time.Hour, remaining)

	ok, _ = DailyClaimEligibility(now.Add(-24*time.Hour).Unix(), 24, now)
	assert.True(t, ok)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_CreateAndList(t *testing.T) {
	pool := setupTestDB(t)
	userRepo := NewUserRepository(pool)
	txRepo := NewTransactionRepository(pool)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	desc := "haunt round"
	tx, err := txRepo.Create(ctx, 12345, -500, model.TxTypeHauntBet, &desc)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), tx.UserID)
	assert.Equal(t, int64(-500), tx.Amount)
	assert.Equal(t, model.TxTypeHauntBet, tx.Type)
	require.NotNil(t, tx.Description)
	assert.Equal(t, desc, *tx.Description)

	_, err = txRepo.Create(ctx, 12345, 1000, model.TxTypeHauntWin, nil)
	require.NoError(t, err)
	_, err = txRepo.Create(ctx, 12345, 500, model.TxTypeDaily, nil)
	require.NoError(t, err)

	txs, err := txRepo.GetByUserID(ctx, 12345, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, model.TxTypeDaily, txs[0].Type)

	sum, err := txRepo.SumByType(ctx, 12345, model.GameTransactionTypes())
	require.NoError(t, err)
	assert.Equal(t, int64(500), sum, "daily rewards are not game results")
}

// ============================================================================
// HauntJournal Tests
// ============================================================================

func TestHauntJournal_RecordSettle(t *testing.T) {
	pool := setupTestDB(t)
	journal := NewHauntJournal(pool)
	ctx := context.Background()

	roundA := uuid.NewString()
	roundB := uuid.NewString()
	joined := time.Now().UTC().Truncate(time.Millisecond)

	alice := haunt.Entry{Player: haunt.Player{ID: 1, Name: "alice"}, Stake: 100, JoinedAt: joined}
	bob := haunt.Entry{Player: haunt.Player{ID: 2, Name: "bob"}, Stake: 250, JoinedAt: joined.Add(time.Second)}

	require.NoError(t, journal.RecordEntry(ctx, roundA, alice))
	require.NoError(t, journal.RecordEntry(ctx, roundA, bob))
	require.NoError(t, journal.RecordEntry(ctx, roundA, alice), "duplicate entries are ignored")
	require.NoError(t, journal.RecordEntry(ctx, roundB, alice))

	pending, err := journal.Unsettled(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, roundA, pending[0].RoundID)
	assert.Equal(t, "alice", pending[0].Player.Name)
	assert.Equal(t, int64(250), pending[1].Stake)

	require.NoError(t, journal.SettleRound(ctx, roundA))

	pending, err = journal.Unsettled(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, roundB, pending[0].RoundID)

	require.NoError(t, journal.SettleRound(ctx, roundB))
	pending, err = journal.Unsettled(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
