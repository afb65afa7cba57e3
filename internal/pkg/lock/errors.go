package lock

import "errors"

// ErrLockTimeout is returned when the context ends before the lock is held.
var ErrLockTimeout = errors.New("lock acquisition timeout")
