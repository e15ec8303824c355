package lock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_U_LocalRWLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l1, err := NewRWLock(ctx, "phase/p1/user/u1")
	require.NoError(t, err)
	l2, err := NewRWLock(ctx, "phase/p1/user/u1")
	require.NoError(t, err)
	assert.Same(t, l1, l2)
	assert.Equal(t, "phase/p1/user/u1", l1.Key())

	// Writers are mutually exclusive
	counter := 0
	wg := sync.WaitGroup{}
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, _ := NewRWLock(ctx, "phase/p1/user/u1")
			assert.NoError(t, l.RWLock(ctx))
			counter++
			assert.NoError(t, l.RWUnlock(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	// Readers share the lock
	require.NoError(t, l1.RLock(ctx))
	require.NoError(t, l2.RLock(ctx))
	require.NoError(t, l1.RUnlock(ctx))
	require.NoError(t, l2.RUnlock(ctx))
}

func Test_U_LocalRWLockCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l, err := NewLocalRWLock("canceled")
	require.NoError(t, err)
	assert.ErrorIs(t, l.RWLock(ctx), context.Canceled)
	assert.ErrorIs(t, l.RLock(ctx), context.Canceled)
}
