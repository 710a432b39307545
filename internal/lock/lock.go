// Package lock provides session lock backends: an in-process lock shared
// by every reconciler in the process, and a Redis lock shared by every
// process using the same local database.
package lock

import (
	"context"
	"sync"

	"github.com/agentstation/catalogsync/pkg/errors"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Local)
)

// Local is a process-wide lock identified by a key.
type Local struct {
	key string
	mu  sync.Mutex
}

// NewLocal returns the process-wide lock for key. Calls with the same key
// return the same lock.
func NewLocal(key string) *Local {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[key]; ok {
		return l
	}
	l := &Local{key: key}
	registry[key] = l
	return l
}

// Key returns the lock key.
func (l *Local) Key() string {
	return l.key
}

// TryLock acquires the lock without waiting.
func (l *Local) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, errors.ErrSessionBusy
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
