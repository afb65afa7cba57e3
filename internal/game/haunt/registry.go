package haunt

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// round is the live pool. Entries keep join order; index maps player ID to
// its position.
type round struct {
	id         string
	openedAt   time.Time
	resolvesAt time.Time
	entries    []Entry
	index      map[int64]int
	resolving  bool
}

// RoundInfo is a read-only view of the current round.
type RoundInfo struct {
	ID         string
	OpenedAt   time.Time
	ResolvesAt time.Time
	Players    []string
	Pool       int64
	Resolving  bool
}

// Registry owns the current round and the cooldown window. All pool
// mutation goes through AddEntry and Drain.
type Registry struct {
	mu             sync.Mutex
	current        *round
	lastResolvedAt time.Time
	newID          func() string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{newID: uuid.NewString}
}

// CooldownRemaining returns how long until a new round may open.
func (r *Registry) CooldownRemaining(now time.Time, cooldown time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cooldownRemainingLocked(now, cooldown)
}

func (r *Registry) cooldownRemainingLocked(now time.Time, cooldown time.Duration) time.Duration {
	if r.lastResolvedAt.IsZero() {
		return 0
	}
	remaining := cooldown - now.Sub(r.lastResolvedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TryOpen returns the open round, creating one if none exists and the
// cooldown window has elapsed. opened reports whether a new round was made.
func (r *Registry) TryOpen(now time.Time, cooldown, wait time.Duration) (RoundInfo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if r.current.resolving {
			return RoundInfo{}, false, ErrRoundResolving
		}
		return r.infoLocked(), false, nil
	}

	if remaining := r.cooldownRemainingLocked(now, cooldown); remaining > 0 {
		return RoundInfo{}, false, &CooldownError{Remaining: remaining}
	}

	r.current = &round{
		id:         r.newID(),
		openedAt:   now,
		resolvesAt: now.Add(wait),
		index:      make(map[int64]int),
	}
	return r.infoLocked(), true, nil
}

// Has reports whether the player already holds an entry in the open round.
func (r *Registry) Has(playerID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return false
	}
	_, ok := r.current.index[playerID]
	return ok
}

// AddEntry records a stake in the open round.
func (r *Registry) AddEntry(e Entry) error {
	if e.Stake <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return ErrNoOpenRound
	}
	if r.current.resolving {
		return ErrRoundResolving
	}
	if _, ok := r.current.index[e.Player.ID]; ok {
		return ErrDuplicateEntry
	}

	r.current.index[e.Player.ID] = len(r.current.entries)
	r.current.entries = append(r.current.entries, e)
	return nil
}

// Drain empties the pool and closes the round to further joins. Only the
// first call returns entries; later calls return nil until the round is
// marked resolved.
func (r *Registry) Drain(now time.Time) (string, []Entry, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil || r.current.resolving {
		return "", nil, now
	}

	r.current.resolving = true
	entries := r.current.entries
	r.current.entries = nil
	r.current.index = make(map[int64]int)
	return r.current.id, entries, now
}

// Abandon discards an open round without starting the cooldown window and
// returns its entries. A round already being resolved is left alone.
func (r *Registry) Abandon() (string, []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil || r.current.resolving {
		return "", nil
	}
	id, entries := r.current.id, r.current.entries
	r.current = nil
	return id, entries
}

// MarkResolved clears the drained round and starts the cooldown window.
func (r *Registry) MarkResolved(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
	r.lastResolvedAt = now
}

// LastResolvedAt returns when the previous round finished.
func (r *Registry) LastResolvedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResolvedAt
}

// Snapshot returns a view of the current round and whether one exists.
func (r *Registry) Snapshot() (RoundInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return RoundInfo{}, false
	}
	return r.infoLocked(), true
}

func (r *Registry) infoLocked() RoundInfo {
	info := RoundInfo{
		ID:         r.current.id,
		OpenedAt:   r.current.openedAt,
		ResolvesAt: r.current.resolvesAt,
		Resolving:  r.current.resolving,
		Players:    make([]string, 0, len(r.current.entries)),
	}
	for _, e := range r.current.entries {
		info.Players = append(info.Players, e.Player.Name)
		info.Pool += e.Stake
	}
	return info
}
