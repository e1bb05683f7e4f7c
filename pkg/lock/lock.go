package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when the key is held by someone else.
var ErrLocked = errors.New("lock is held")

// Locker grants exclusive, expiring ownership of a key.
type Locker interface {
	// Acquire fails fast with ErrLocked. The release func is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

func newToken() string {
	return uuid.NewString()
}
