// Package haunt implements the Haunted House round game: players buy in
// during a join window, the round resolves on a timer with a weighted
// random outcome, and a global cooldown runs before the next round opens.
package haunt

import (
	"context"
	"time"
)

// Player identifies a participant. The pool is keyed by ID; Name is only
// used for narrative text.
type Player struct {
	ID   int64
	Name string
}

// Entry is one player's stake in the open round. The stake has already been
// deducted from the player's balance when the entry is recorded.
type Entry struct {
	Player   Player
	Stake    int64
	JoinedAt time.Time
}

// Category is the outcome class of a resolved round.
type Category int

const (
	CategoryMixed    Category = iota // independent win/loss per player
	CategoryJackpot                  // everyone wins
	CategoryWipeout                  // everyone loses
	CategorySabotage                 // one player takes the pool
)

func (c Category) String() string {
	switch c {
	case CategoryMixed:
		return "mixed"
	case CategoryJackpot:
		return "jackpot"
	case CategoryWipeout:
		return "wipeout"
	case CategorySabotage:
		return "sabotage"
	default:
		return "unknown"
	}
}

// Phase is the scheduler's lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOpen
	PhaseResolving
	PhaseCooldown
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOpen:
		return "open"
	case PhaseResolving:
		return "resolving"
	case PhaseCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// BalanceStore is the point ledger shared with the rest of the bot.
// Each call must be atomic; delta is negative for stakes and positive for
// payouts. AdjustBalance returns an error wrapping ErrInsufficientBalance
// when a debit would overdraw the player.
type BalanceStore interface {
	GetBalance(ctx context.Context, playerID int64) (int64, error)
	AdjustBalance(ctx context.Context, playerID int64, delta int64) error
}

// Announcer delivers chat output. Both calls are fire-and-forget.
type Announcer interface {
	Announce(text string)
	Whisper(player Player, text string)
}

// JournalEntry is a stake recorded durably against a round.
type JournalEntry struct {
	RoundID string
	Entry
}

// Journal durably records stakes so that a restart mid-round can refund them.
type Journal interface {
	RecordEntry(ctx context.Context, roundID string, entry Entry) error
	SettleRound(ctx context.Context, roundID string) error
	Unsettled(ctx context.Context) ([]JournalEntry, error)
}
