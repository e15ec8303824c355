package lock

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/global"
)

// EtcdRWLock is a distributed readers-writer lock with writer-preference
// built on top of etcd mutexes, for covalic replicas sharing the same
// store.
//
// It assumes the network is reliable.
// Moreover, it is unfair as it does not use a queue to order requests as a FIFO.
//
// Based upon 'Concurrent Control with "Readers" and "Writers"' by Courtois et al. (1971)
// DOI: 10.1145/362759.362813
type EtcdRWLock struct {
	key string
	s   *concurrency.Session

	// Keys live under /covalic/<key>/:
	//   readCounter, writeCounter -> plain integer values
	//   m1, m2, m3, r, w          -> mutexes
	// m3 prevents too many readers from waiting on r, so writers get a
	// chance to signal r when they come.
	m1, m2, m3, r, w *concurrency.Mutex
}

func NewEtcdRWLock(ctx context.Context, key string) (RWLock, error) {
	s, err := global.GetEtcdManager().NewConcurrencySession(ctx)
	if err != nil {
		return nil, err
	}

	pfx := prefix(key)
	return &EtcdRWLock{
		key: key,
		s:   s,
		m1:  concurrency.NewMutex(s, pfx+"m1"),
		m2:  concurrency.NewMutex(s, pfx+"m2"),
		m3:  concurrency.NewMutex(s, pfx+"m3"),
		r:   concurrency.NewMutex(s, pfx+"r"),
		w:   concurrency.NewMutex(s, pfx+"w"),
	}, nil
}

func prefix(key string) string {
	return "/covalic/" + key + "/"
}

func (lock *EtcdRWLock) Key() string {
	return lock.key
}

func (lock *EtcdRWLock) RLock(ctx context.Context) error {
	ctxNc := context.WithoutCancel(ctx)

	for _, mx := range []*concurrency.Mutex{lock.m3, lock.r, lock.m1} {
		if err := mx.Lock(ctx); err != nil {
			return err // could be context.Canceled
		}
		defer unlock(ctxNc, mx)
	}

	readers, err := lock.add(ctx, "readCounter", 1)
	if err != nil {
		return err
	}
	if readers == 1 {
		// The counter is committed, skipping the lock would deadlock
		return lock.w.Lock(ctxNc)
	}
	return nil
}

func (lock *EtcdRWLock) RUnlock(ctx context.Context) error {
	ctxNc := context.WithoutCancel(ctx)

	if err := lock.m1.Lock(ctx); err != nil {
		return err // could be context.Canceled
	}
	defer unlock(ctxNc, lock.m1)

	readers, err := lock.add(ctx, "readCounter", -1)
	if err != nil {
		return err
	}
	if readers == 0 {
		// The counter is committed, skipping the unlock would deadlock
		return lock.w.Unlock(ctxNc)
	}
	return nil
}

func (lock *EtcdRWLock) RWLock(ctx context.Context) error {
	ctxNc := context.WithoutCancel(ctx)

	if err := lock.m2.Lock(ctx); err != nil {
		return err // could be context.Canceled
	}

	writers, err := lock.add(ctx, "writeCounter", 1)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return lock.m2.Unlock(ctxNc)
		}
		return multierr.Combine(err, lock.m2.Unlock(ctxNc))
	}
	if writers == 1 {
		if err := lock.r.Lock(ctxNc); err != nil {
			return multierr.Combine(
				err,
				lock.m2.Unlock(ctxNc),
				lock.w.Lock(ctxNc), // keep the equilibrium state
			)
		}
	}

	return multierr.Combine(
		lock.m2.Unlock(ctxNc),
		lock.w.Lock(ctxNc),
	)
}

func (lock *EtcdRWLock) RWUnlock(ctx context.Context) error {
	ctxNc := context.WithoutCancel(ctx)

	// V(w) is not performed first as in Courtois et al.: on failure we could
	// not recover with P(w) without risking to starve. It is then deferred to
	// the very end, as the only unrecoverable step.
	if err := lock.m2.Lock(ctx); err != nil {
		return err // could be context.Canceled
	}

	writers, err := lock.add(ctx, "writeCounter", -1)
	if err != nil {
		return multierr.Combine(err, lock.m2.Unlock(ctxNc))
	}
	if writers == 0 {
		if err := lock.r.Unlock(ctxNc); err != nil {
			return multierr.Combine(err, lock.m2.Unlock(ctxNc))
		}
	}

	return multierr.Combine(
		lock.m2.Unlock(ctxNc),
		lock.w.Unlock(ctxNc),
	)
}

func (lock *EtcdRWLock) Close() error {
	return lock.s.Close()
}

// add increments the counter by delta, and returns its new value.
// A missing counter is zero.
func (lock *EtcdRWLock) add(ctx context.Context, counter string, delta int) (int, error) {
	etcdCli := global.GetEtcdManager()
	k := prefix(lock.key) + counter

	res, err := etcdCli.Get(ctx, k)
	if err != nil {
		return 0, err
	}
	var val int
	switch len(res.Kvs) {
	case 0:
		if delta < 0 {
			return 0, fmt.Errorf("counter %s does not exist", k)
		}
	case 1:
		str := string(res.Kvs[0].Value)
		val, err = strconv.Atoi(str)
		if err != nil {
			return 0, fmt.Errorf("invalid format for %s, got %s", k, str)
		}
	default:
		return 0, fmt.Errorf("invalid etcd filter for %s", k)
	}

	val += delta
	if _, err := etcdCli.Put(ctx, k, strconv.Itoa(val)); err != nil {
		// Nothing committed, deferred unlocks reach the equilibrium state
		return 0, err
	}
	return val, nil
}

func unlock(ctx context.Context, mx *concurrency.Mutex) {
	if err := mx.Unlock(ctx); err != nil {
		global.Log().Error(ctx, "failed to unlock etcd mutex",
			zap.Error(err),
			zap.String("key", mx.Key()),
		)
	}
}
