// Package lock provides keyed mutual exclusion for read-then-write sequences
// that the record store cannot make atomic on its own.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before ctx ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work per key. The returned release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
