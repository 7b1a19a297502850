package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/pkg/config"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

// SellerLocker serializes balance mutations per seller. Every write path
// that touches a seller's periods (attribution, payout recording, forfeiture)
// runs inside WithSellerLock so concurrent mutations never interleave.
type SellerLocker interface {
	WithSellerLock(ctx context.Context, sellerID uuid.UUID, fn func(ctx context.Context) error) error
}

// lockStore defines the Redis operations used by RedisSellerLock.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// RedisSellerLock implements SellerLocker with SETNX + TTL, spinning a bounded
// number of attempts before giving up. The TTL caps how long a crashed holder
// can block a seller.
type RedisSellerLock struct {
	store    lockStore
	ttl      time.Duration
	retry    time.Duration
	attempts int
}

// NewRedisSellerLock constructs a Redis-backed seller lock.
func NewRedisSellerLock(store lockStore, cfg config.LedgerConfig) (*RedisSellerLock, error) {
	if store == nil {
		return nil, errors.New("redis store required for seller lock")
	}
	ttl := cfg.SellerLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := cfg.SellerLockRetry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	attempts := cfg.SellerLockAttempts
	if attempts <= 0 {
		attempts = 40
	}
	return &RedisSellerLock{store: store, ttl: ttl, retry: retry, attempts: attempts}, nil
}

func (l *RedisSellerLock) WithSellerLock(ctx context.Context, sellerID uuid.UUID, fn func(ctx context.Context) error) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}

	key := l.store.LockKey("seller", sellerID.String())
	owner := uuid.NewString()

	acquired := false
	for attempt := 0; attempt < l.attempts; attempt++ {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring seller lock")
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "waiting for seller lock")
		case <-time.After(l.retry):
		}
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict, "seller balance is locked by another operation").
			WithDetails(map[string]any{"seller_id": sellerID})
	}

	defer l.release(ctx, key, owner)
	return fn(ctx)
}

// release deletes the lock only if this holder still owns it, so an expired
// lock reclaimed by another process is never clobbered.
func (l *RedisSellerLock) release(ctx context.Context, key, owner string) {
	value, err := l.store.Get(ctx, key)
	if err != nil {
		return
	}
	if value != owner {
		return
	}
	_ = l.store.Del(ctx, key)
}

// MemorySellerLock is an in-process SellerLocker for tests and single-node
// development runs.
type MemorySellerLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewMemorySellerLock constructs an in-memory seller lock.
func NewMemorySellerLock() *MemorySellerLock {
	return &MemorySellerLock{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *MemorySellerLock) WithSellerLock(ctx context.Context, sellerID uuid.UUID, fn func(ctx context.Context) error) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}

	l.mu.Lock()
	lock, ok := l.locks[sellerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sellerID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}
