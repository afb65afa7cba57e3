package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chat-gamble-bot/internal/game/haunt"
	"chat-gamble-bot/internal/model"
)

// HauntJournal persists haunted house stakes so an interrupted round can be
// refunded after a restart.
type HauntJournal struct {
	pool *pgxpool.Pool
}

var _ haunt.Journal = (*HauntJournal)(nil)

// NewHauntJournal creates a new HauntJournal instance.
func NewHauntJournal(pool *pgxpool.Pool) *HauntJournal {
	return &HauntJournal{pool: pool}
}

// RecordEntry stores one stake. Recording the same player twice in a round
// is a no-op.
func (j *HauntJournal) RecordEntry(ctx context.Context, roundID string, entry haunt.Entry) error {
	const query = `
		INSERT INTO haunt_entries (round_id, user_id, username, stake, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (round_id, user_id) DO NOTHING
	`

	_, err := j.pool.Exec(ctx, query, roundID, entry.Player.ID, entry.Player.Name, entry.Stake, entry.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to record haunt entry: %w", err)
	}
	return nil
}

// SettleRound marks every stake of the round as settled.
func (j *HauntJournal) SettleRound(ctx context.Context, roundID string) error {
	const query = `
		UPDATE haunt_entries
		SET settled_at = NOW()
		WHERE round_id = $1 AND settled_at IS NULL
	`

	if _, err := j.pool.Exec(ctx, query, roundID); err != nil {
		return fmt.Errorf("failed to settle haunt round: %w", err)
	}
	return nil
}

// Unsettled returns stakes of rounds that never resolved, oldest first.
func (j *HauntJournal) Unsettled(ctx context.Context) ([]haunt.JournalEntry, error) {
	rows, err := j.listUnsettled(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]haunt.JournalEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, haunt.JournalEntry{
			RoundID: row.RoundID,
			Entry: haunt.Entry{
				Player:   haunt.Player{ID: row.UserID, Name: row.Username},
				Stake:    row.Stake,
				JoinedAt: row.JoinedAt,
			},
		})
	}
	return entries, nil
}

func (j *HauntJournal) listUnsettled(ctx context.Context) ([]*model.HauntEntry, error) {
	const query = `
		SELECT id, round_id::text, user_id, username, stake, joined_at, settled_at
		FROM haunt_entries
		WHERE settled_at IS NULL
		ORDER BY joined_at, id
	`

	rows, err := j.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled haunt entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.HauntEntry
	for rows.Next() {
		var e model.HauntEntry
		if err := rows.Scan(&e.ID, &e.RoundID, &e.UserID, &e.Username, &e.Stake, &e.JoinedAt, &e.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan haunt entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating haunt entries: %w", err)
	}
	return entries, nil
}
