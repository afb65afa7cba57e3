// Package lock serializes balance changes per user.
package lock

import (
	"context"
	"sync"
)

// UserLock hands out one mutex per user ID. Spin payouts and haunt
// stakes for the same user never interleave their read-check-write.
type UserLock struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{}
}

func (ul *UserLock) get(userID int64) *sync.Mutex {
	if v, ok := ul.locks.Load(userID); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := ul.locks.LoadOrStore(userID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for a user.
func (ul *UserLock) Lock(userID int64) {
	ul.get(userID).Lock()
}

// Unlock releases the lock for a user.
func (ul *UserLock) Unlock(userID int64) {
	ul.get(userID).Unlock()
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(userID int64) bool {
	return ul.get(userID).TryLock()
}

// LockContext blocks until the user's lock is held or ctx is done.
// On ErrLockTimeout the caller does not hold the lock.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	mu := ul.get(userID)
	if mu.TryLock() {
		return nil
	}

	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// hand the lock straight back once the waiter gets it
		go func() {
			<-acquired
			mu.Unlock()
		}()
		return ErrLockTimeout
	}
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockContext is WithLock that gives up when ctx is done.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, fn func() error) error {
	if err := ul.LockContext(ctx, userID); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}
