package lock

import (
	"context"
	"sync"
)

var (
	localLocks sync.Map
)

// LocalLock is an in-process readers-writer lock shared by every caller
// of the same key.
type LocalLock struct {
	key string
	mx  *sync.RWMutex
}

var _ RWLock = (*LocalLock)(nil)

func NewLocalRWLock(key string) (RWLock, error) {
	lock, _ := localLocks.LoadOrStore(key, &LocalLock{
		key: key,
		mx:  &sync.RWMutex{},
	})
	return lock.(RWLock), nil
}

func (lock *LocalLock) Key() string {
	return lock.key
}

func (lock *LocalLock) RLock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock.mx.RLock()
	return nil
}

// RUnlock does not check the context, a held lock must always be released.
func (lock *LocalLock) RUnlock(_ context.Context) error {
	lock.mx.RUnlock()
	return nil
}

func (lock *LocalLock) RWLock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock.mx.Lock()
	return nil
}

func (lock *LocalLock) RWUnlock(_ context.Context) error {
	lock.mx.Unlock()
	return nil
}

func (lock *LocalLock) Close() error {
	return nil
}
