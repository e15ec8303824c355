package job

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/global"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// TokenScope is the scope of the tokens allowed to update the job.
func TokenScope(jobID string) string {
	return tokenScopePrefix + jobID
}

const tokenScopePrefix = "jobs.job_"

// ScopeJobID returns the job a token scope is dedicated to.
func ScopeJobID(scope string) (string, bool) {
	return strings.CutPrefix(scope, tokenScopePrefix)
}

// CreateJob returns a new inactive job owned by the user. It is not
// saved, callers complete it then schedule it.
func (store *Store) CreateJob(title, typ, handler string, user *model.User) *model.Job {
	now := time.Now().UTC()
	return &model.Job{
		ID:      uuid.NewString(),
		Title:   title,
		Type:    typ,
		Handler: handler,
		UserID:  user.ID,
		Status:  model.JobInactive,
		Log:     []string{},
		Created: now,
		Updated: now,
	}
}

// ScheduleJob saves the job as queued then publishes it. When it could
// not be published, the job is saved in error.
func (store *Store) ScheduleJob(ctx context.Context, job *model.Job) error {
	logger := global.Log()
	ctx = global.WithJobID(ctx, job.ID)

	if job.Status != model.JobInactive {
		return errs.NewValidation("Job " + job.ID + " is already " + job.Status.String() + ".")
	}
	job.Status = model.JobQueued
	job.Updated = time.Now().UTC()
	if err := store.db.Jobs.Save(ctx, job); err != nil {
		return err
	}

	if err := store.scheduler.Schedule(ctx, job); err != nil {
		logger.Error(ctx, "scheduling job", zap.Error(err))

		job.Status = model.JobError
		job.Log = append(job.Log, "Scheduling failed: "+err.Error()+"\n")
		job.Updated = time.Now().UTC()
		if serr := store.db.Jobs.Save(ctx, job); serr != nil {
			logger.Error(ctx, "saving unscheduled job", zap.Error(serr))
		}
		return &errs.ErrInternal{Sub: err}
	}

	logger.Info(ctx, "job scheduled", zap.String("type", job.Type))
	return nil
}
