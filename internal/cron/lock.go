package cron

import (
	"context"
	"sync"
)

// Lock guards a cycle against overlapping runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLock prevents overlapping cycles inside one process. The jobs it
// guards only touch process-local state, so no cross-instance lock is needed.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
