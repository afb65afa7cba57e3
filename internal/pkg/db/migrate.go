package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				telegram_id BIGINT PRIMARY KEY,
				username VARCHAR(255) NOT NULL,
				balance BIGINT NOT NULL DEFAULT 1000,
				last_daily_claim BIGINT DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC);
		`,
	},
	{
		name: "transactions table",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
				amount BIGINT NOT NULL,
				type VARCHAR(50) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions(type, created_at DESC);
		`,
	},
	{
		name: "haunt_entries table",
		sql: `
			CREATE TABLE IF NOT EXISTS haunt_entries (
				id BIGSERIAL PRIMARY KEY,
				round_id UUID NOT NULL,
				user_id BIGINT NOT NULL,
				username VARCHAR(255) NOT NULL,
				stake BIGINT NOT NULL CHECK (stake > 0),
				joined_at TIMESTAMPTZ NOT NULL,
				settled_at TIMESTAMPTZ,
				UNIQUE (round_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_haunt_entries_unsettled ON haunt_entries(round_id) WHERE settled_at IS NULL;
		`,
	},
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")
	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("migration", m.name).Msg("Migration applied")
	}
	log.Info().Msg("All migrations completed successfully")
	return nil
}
