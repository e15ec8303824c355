package jobs

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ctfer-io/covalic/pkg/model"
)

var ErrClosed = errors.New("scheduler is closed")

// Message is what a worker receives for each scheduled job.
type Message struct {
	JobID  string           `json:"jobId"`
	Title  string           `json:"title"`
	Kwargs *model.JobKwargs `json:"kwargs"`
}

func NewMessage(job *model.Job) Message {
	return Message{
		JobID:  job.ID,
		Title:  job.Title,
		Kwargs: job.Kwargs,
	}
}

// Scheduler publishes scheduled jobs to workers.
type Scheduler interface {
	Schedule(ctx context.Context, job *model.Job) error
	Close() error
}

// Source delivers scheduled jobs to a worker. Consume blocks until the
// context is canceled or the source is closed, calling handle for each
// message.
type Source interface {
	Consume(ctx context.Context, handle func(context.Context, Message) error) error
}
