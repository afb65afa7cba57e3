package haunt

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type memoryBalances struct {
	mu       sync.Mutex
	balances map[int64]int64
	// failCredits makes the next n positive adjustments for a player fail.
	failCredits map[int64]int
	getErr      error
	credits     int
}

func newMemoryBalances(initial map[int64]int64) *memoryBalances {
	b := &memoryBalances{balances: make(map[int64]int64), failCredits: make(map[int64]int)}
	for id, v := range initial {
		b.balances[id] = v
	}
	return b
}

func (b *memoryBalances) GetBalance(_ context.Context, id int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return 0, b.getErr
	}
	return b.balances[id], nil
}

func (b *memoryBalances) AdjustBalance(_ context.Context, id int64, delta int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if delta > 0 && b.failCredits[id] > 0 {
		b.failCredits[id]--
		return errors.New("ledger timeout")
	}
	if b.balances[id]+delta < 0 {
		return fmt.Errorf("%w: balance %d", ErrInsufficientBalance, b.balances[id])
	}
	b.balances[id] += delta
	if delta > 0 {
		b.credits++
	}
	return nil
}

func (b *memoryBalances) get(id int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[id]
}

type whisper struct {
	player Player
	text   string
}

type recordingAnnouncer struct {
	mu        sync.Mutex
	announced []string
	whispers  []whisper
}

func (a *recordingAnnouncer) Announce(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announced = append(a.announced, text)
}

func (a *recordingAnnouncer) Whisper(p Player, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.whispers = append(a.whispers, whisper{player: p, text: text})
}

func (a *recordingAnnouncer) chat() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.announced...)
}

func (a *recordingAnnouncer) private() []whisper {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]whisper(nil), a.whispers...)
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
	settled map[string]bool
}

func newMemoryJournal() *memoryJournal {
	return &memoryJournal{settled: make(map[string]bool)}
}

func (j *memoryJournal) RecordEntry(_ context.Context, roundID string, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, JournalEntry{RoundID: roundID, Entry: e})
	return nil
}

func (j *memoryJournal) SettleRound(_ context.Context, roundID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.settled[roundID] = true
	return nil
}

func (j *memoryJournal) Unsettled(_ context.Context) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []JournalEntry
	for _, e := range j.entries {
		if !j.settled[e.RoundID] {
			out = append(out, e)
		}
	}
	return out, nil
}
