package checkout

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker serializes upgrade flows per user. Lock returns an unlock function
// on success and fails fast (no waiting) when another upgrade holds the
// lock for the same user.
type Locker interface {
	Lock(ctx context.Context, userID string) (func(), error)
}

// RedsyncLocker implements Locker with a Redis-backed distributed mutex, so
// concurrent duplicate upgrade requests are serialized across instances.
type RedsyncLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewRedsyncLocker creates a locker on an existing Redis client.
// The expiry caps how long a crashed instance can keep a user locked;
// it comfortably exceeds the worst-case upgrade flow duration.
func NewRedsyncLocker(client redis.UniversalClient) *RedsyncLocker {
	if client == nil {
		panic("checkout: redis client is required")
	}
	return &RedsyncLocker{
		rs:     redsync.New(redsyncredis.NewPool(client)),
		expiry: 30 * time.Second,
	}
}

func (l *RedsyncLocker) Lock(ctx context.Context, userID string) (func(), error) {
	mu := l.rs.NewMutex("billingkit:upgrade:"+userID,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(1),
	)
	if err := mu.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		// Unlock must run even when the request context is already gone.
		_, _ = mu.UnlockContext(context.WithoutCancel(ctx))
	}, nil
}

var _ Locker = (*RedsyncLocker)(nil)
