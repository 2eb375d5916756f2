package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LockName is shared by every cron worker replica.
const LockName = "cron-worker"

const defaultLockTTL = 55 * time.Minute

type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock holds key with a fresh token per acquisition. A holder that dies
// blocks the others for at most ttl.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

// LockTTLFor keeps a lease just short of the cycle interval so a crashed
// holder never costs more than one cycle.
func LockTTLFor(interval time.Duration) time.Duration {
	if interval <= 2*time.Minute {
		return interval
	}
	return interval - time.Minute
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release is a no-op unless the key still carries this holder's token. The
// check and the delete are two round trips; a lease that expires between
// them is the accepted gap.
func (l *RedisLock) Release(ctx context.Context) error {
	token := l.token
	l.token = ""
	if token == "" {
		return nil
	}

	holder, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) || (err == nil && holder != token) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s holder: %w", l.key, err)
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("drop %s: %w", l.key, err)
	}
	return nil
}
