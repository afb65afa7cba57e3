package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that concurrent
// read-modify-write cycles under the lock match sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		expected := initialBalance
		for _, a := range amounts {
			expected += a
		}

		ul := NewUserLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					balance += amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance %d, want %d", balance, expected)
		}
	})
}

// TestMultipleUsersIndependentLocksProperty checks that each user's
// balance is serialized independently.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		balances := make([]int64, numUsers)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for u := 0; u < numUsers; u++ {
			for j := 0; j < opsPerUser; j++ {
				go func(user int) {
					defer wg.Done()
					ul.Lock(int64(user))
					balances[user] += 10
					ul.Unlock(int64(user))
				}(u)
			}
		}
		wg.Wait()

		for u, b := range balances {
			if b != int64(opsPerUser)*10 {
				t.Fatalf("user %d balance %d, want %d", u, b, opsPerUser*10)
			}
		}
	})
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(1))
	assert.False(t, ul.TryLock(1))
	assert.True(t, ul.TryLock(2))
	ul.Unlock(1)
	assert.True(t, ul.TryLock(1))
}

func TestLockContext_Timeout(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(7)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ul.WithLockContext(ctx, 7, func() error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)

	ul.Unlock(7)
	// the abandoned waiter releases the lock after acquiring it
	assert.Eventually(t, func() bool {
		if ul.TryLock(7) {
			ul.Unlock(7)
			return true
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestLockContext_Acquires(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(3)
	go func() {
		time.Sleep(10 * time.Millisecond)
		ul.Unlock(3)
	}()

	var ran bool
	err := ul.WithLockContext(context.Background(), 3, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
