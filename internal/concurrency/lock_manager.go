package concurrency

import (
	"context"
	"strings"
	"sync"
)

// LockManager handles named locks. The agent keys them by signer address so
// two submissions from one account never race for the same nonce.
type LockManager struct {
	locks sync.Map
}

// NewLockManager creates a new LockManager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns a mutex for the given key. Keys are case-insensitive, which
// matches checksummed and lower-case hex addresses.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(strings.ToLower(key), &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// WithLock runs fn while holding the lock for key. It gives up waiting when
// ctx is done; fn itself is never interrupted.
func (lm *LockManager) WithLock(ctx context.Context, key string, fn func() error) error {
	mu := lm.GetLock(key)

	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// release the lock once the pending Lock call gets it
		go func() {
			<-acquired
			mu.Unlock()
		}()
		return ctx.Err()
	}
	defer mu.Unlock()
	return fn()
}
