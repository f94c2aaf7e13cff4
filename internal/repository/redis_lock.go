package repository

import (
	"context"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/pkg/cache"
)

const runLockKey = "scheduler:run_lock"

// RunLock is the Redis single-flight guard for batch runs. Acquire is SETNX
// with a TTL, so the lock self-expires if a run dies without releasing it.
type RunLock struct {
	cache cache.Service
}

func NewRunLock(c cache.Service) *RunLock {
	return &RunLock{cache: c}
}

// Acquire returns false without blocking when another run holds the lock.
func (l *RunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.cache.TryLock(ctx, runLockKey, ttl)
	if err != nil {
		return false, errs.System("acquire run lock").WithError(err)
	}
	return ok, nil
}

func (l *RunLock) Release(ctx context.Context) error {
	if err := l.cache.Unlock(ctx, runLockKey); err != nil {
		return errs.System("release run lock").WithError(err)
	}
	return nil
}
