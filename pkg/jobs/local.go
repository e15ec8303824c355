package jobs

import (
	"context"
	"sync"

	"github.com/ctfer-io/covalic/pkg/model"
)

// Local is an in-process queue of jobs, drained by embedded workers.
// The queue is never closed, closing the Local releases both blocked
// producers and consumers.
type Local struct {
	queue chan Message
	done  chan struct{}
	once  sync.Once
}

var _ Scheduler = (*Local)(nil)
var _ Source = (*Local)(nil)

// NewLocal builds a local queue holding up to size pending jobs before
// Schedule blocks.
func NewLocal(size int) *Local {
	if size < 0 {
		size = 0
	}
	return &Local{
		queue: make(chan Message, size),
		done:  make(chan struct{}),
	}
}

func (l *Local) Schedule(ctx context.Context, job *model.Job) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.queue <- NewMessage(job):
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local) Consume(ctx context.Context, handle func(context.Context, Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			// Jobs queued before closing are still handled
			for {
				select {
				case msg := <-l.queue:
					_ = handle(ctx, msg)
				default:
					return ErrClosed
				}
			}
		case msg := <-l.queue:
			// Failures are reported on the job itself
			_ = handle(ctx, msg)
		}
	}
}

func (l *Local) Close() error {
	l.once.Do(func() {
		close(l.done)
	})
	return nil
}
