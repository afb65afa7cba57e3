package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGame struct{ cmd string }

func (s stubGame) Name() string                            { return "stub " + s.cmd }
func (s stubGame) Command() string                         { return s.cmd }
func (s stubGame) Description() string                     { return "" }
func (s stubGame) ValidateBet(int64, map[string]any) error { return nil }
func (s stubGame) MaxBet() int64                           { return 0 }
func (s stubGame) Cooldown() time.Duration                 { return 0 }
func (s stubGame) GlobalCooldown() time.Duration           { return 0 }
func (s stubGame) Play(context.Context, int64, int64, map[string]any) (*GameResult, error) {
	return &GameResult{}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(stubGame{}))
	require.Error(t, r.Register(stubGame{cmd: "Spin!"}))

	require.NoError(t, r.Register(stubGame{cmd: "spin"}))
	require.NoError(t, r.Register(stubGame{cmd: "flip"}))
	require.ErrorIs(t, r.Register(stubGame{cmd: "spin"}), ErrDuplicateGame)

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"flip", "spin"}, r.Commands())

	g, ok := r.Get("spin")
	require.True(t, ok)
	assert.Equal(t, "spin", g.Command())
	_, ok = r.Get("/flip")
	assert.True(t, ok)

	_, ok = r.Get("dice")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "flip", list[0].Command())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Register(stubGame{cmd: string(rune('a' + i%26))})
		}()
		go func() {
			defer wg.Done()
			_ = r.Commands()
		}()
	}
	wg.Wait()
	assert.Equal(t, 26, r.Count())
}

func TestParams(t *testing.T) {
	p := map[string]any{ParamUser: "alice", ParamBalance: int64(42)}
	b, ok := BalanceParam(p)
	assert.True(t, ok)
	assert.Equal(t, int64(42), b)
	assert.Equal(t, "alice", UserParam(p))

	_, ok = BalanceParam(nil)
	assert.False(t, ok)
	assert.Empty(t, UserParam(nil))
}
