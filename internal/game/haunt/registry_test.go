package haunt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var epoch = time.Date(2024, 10, 31, 20, 0, 0, 0, time.UTC)

func TestRegistry_TryOpen(t *testing.T) {
	r := NewRegistry()

	info, opened, err := r.TryOpen(epoch, time.Minute, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, opened)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, epoch.Add(30*time.Second), info.ResolvesAt)

	again, opened, err := r.TryOpen(epoch.Add(time.Second), time.Minute, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, opened)
	assert.Equal(t, info.ID, again.ID)
}

func TestRegistry_Cooldown(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.TryOpen(epoch, time.Minute, time.Second)
	require.NoError(t, err)
	require.NoError(t, r.AddEntry(Entry{Player: Player{ID: 1, Name: "a"}, Stake: 10}))
	r.Drain(epoch)
	r.MarkResolved(epoch)

	_, _, err = r.TryOpen(epoch.Add(20*time.Second), time.Minute, time.Second)
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 40*time.Second, cd.Remaining)
	assert.ErrorIs(t, err, ErrRoundInCooldown)

	_, opened, err := r.TryOpen(epoch.Add(time.Minute), time.Minute, time.Second)
	require.NoError(t, err)
	assert.True(t, opened)
}

func TestRegistry_AddEntry(t *testing.T) {
	r := NewRegistry()

	err := r.AddEntry(Entry{Player: Player{ID: 1}, Stake: 10})
	assert.ErrorIs(t, err, ErrNoOpenRound)

	_, _, err = r.TryOpen(epoch, 0, time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, r.AddEntry(Entry{Player: Player{ID: 1}, Stake: 0}), ErrInvalidAmount)
	require.NoError(t, r.AddEntry(Entry{Player: Player{ID: 1, Name: "a"}, Stake: 10}))
	assert.ErrorIs(t, r.AddEntry(Entry{Player: Player{ID: 1, Name: "a"}, Stake: 99}), ErrDuplicateEntry)
	assert.True(t, r.Has(1))
	assert.False(t, r.Has(2))

	// same display name, different ID: separate entries
	require.NoError(t, r.AddEntry(Entry{Player: Player{ID: 2, Name: "a"}, Stake: 5}))

	info, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "a"}, info.Players)
	assert.Equal(t, int64(15), info.Pool)
}

func TestRegistry_DrainOnce(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.TryOpen(epoch, 0, time.Second)
	require.NoError(t, err)
	require.NoError(t, r.AddEntry(Entry{Player: Player{ID: 1, Name: "a"}, Stake: 10}))
	require.NoError(t, r.AddEntry(Entry{Player: Player{ID: 2, Name: "b"}, Stake: 20}))

	id, entries, _ := r.Drain(epoch)
	assert.NotEmpty(t, id)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Player.ID)
	assert.Equal(t, int64(2), entries[1].Player.ID)

	id, entries, _ = r.Drain(epoch)
	assert.Empty(t, id)
	assert.Nil(t, entries)

	assert.ErrorIs(t, r.AddEntry(Entry{Player: Player{ID: 3}, Stake: 1}), ErrRoundResolving)
	_, _, err = r.TryOpen(epoch, 0, time.Second)
	assert.ErrorIs(t, err, ErrRoundResolving)
}

func TestRegistry_Abandon(t *testing.T) {
	r := NewRegistry()
	id, entries := r.Abandon()
	assert.Empty(t, id)
	assert.Nil(t, entries)

	info, _, err := r.TryOpen(epoch, time.Minute, time.Second)
	require.NoError(t, err)
	require.NoError(t, r.AddEntry(Entry{Player: Player{ID: 1, Name: "a"}, Stake: 10}))

	id, entries = r.Abandon()
	assert.Equal(t, info.ID, id)
	require.Len(t, entries, 1)
	_, ok := r.Snapshot()
	assert.False(t, ok)
	assert.True(t, r.LastResolvedAt().IsZero(), "abandoning starts no cooldown")

	_, opened, err := r.TryOpen(epoch, time.Minute, time.Second)
	require.NoError(t, err)
	assert.True(t, opened)

	r.Drain(epoch)
	id, entries = r.Abandon()
	assert.Empty(t, id, "a resolving round is not abandoned")
	assert.Nil(t, entries)
}

func TestRegistry_ConcurrentDrain(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.TryOpen(epoch, 0, time.Second)
	require.NoError(t, err)
	for i := int64(1); i <= 50; i++ {
		require.NoError(t, r.AddEntry(Entry{Player: Player{ID: i}, Stake: i}))
	}

	var mu sync.Mutex
	var drained int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, entries, _ := r.Drain(epoch)
			mu.Lock()
			drained += len(entries)
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, drained)
}

// TestRegistry_PoolMatchesEntriesProperty checks that every accepted entry
// is drained exactly once and duplicates never change the pool.
func TestRegistry_PoolMatchesEntriesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry()
		if _, _, err := r.TryOpen(epoch, 0, time.Second); err != nil {
			t.Fatalf("open: %v", err)
		}

		ids := rapid.SliceOf(rapid.Int64Range(1, 20)).Draw(t, "ids")
		stakes := make(map[int64]int64)
		var order []int64
		for i, id := range ids {
			stake := int64(i + 1)
			err := r.AddEntry(Entry{Player: Player{ID: id}, Stake: stake})
			if _, seen := stakes[id]; seen {
				if !errors.Is(err, ErrDuplicateEntry) {
					t.Fatalf("expected duplicate for %d, got %v", id, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("add %d: %v", id, err)
			}
			stakes[id] = stake
			order = append(order, id)
		}

		_, entries, _ := r.Drain(epoch)
		if len(entries) != len(order) {
			t.Fatalf("drained %d entries, want %d", len(entries), len(order))
		}
		for i, e := range entries {
			if e.Player.ID != order[i] || e.Stake != stakes[e.Player.ID] {
				t.Fatalf("entry %d = %+v, want id %d stake %d", i, e, order[i], stakes[order[i]])
			}
		}
	})
}
