package reconciler

import (
	"context"
	"sync"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// mutexLocker is the default Locker, scoped to one Reconciler.
type mutexLocker struct {
	mu sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{}
}

// TryLock implements Locker.
func (l *mutexLocker) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, errors.ErrSessionBusy
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
