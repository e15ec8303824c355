package job

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// QueryJobs lists the jobs of the given status, if any, which were not
// updated for olderThan. Jobs are sorted by creation date.
func (store *Store) QueryJobs(ctx context.Context, status *model.JobStatus, olderThan time.Duration) ([]*model.Job, error) {
	before := time.Now().Add(-olderThan)
	js, err := store.db.Jobs.Find(ctx, func(j *model.Job) bool {
		if status != nil && j.Status != *status {
			return false
		}
		return olderThan <= 0 || j.Updated.Before(before)
	})
	if err != nil {
		return nil, err
	}
	return common.Page(js, func(a, b *model.Job) bool {
		return a.Created.Before(b.Created)
	}, 0, 0), nil
}

func (store *Store) HandleQuery(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if err := common.RequireAdmin(common.CurrentUser(ctx), ""); err != nil {
		return err
	}

	var status *model.JobStatus
	if v := common.Param(r, "status"); v != "" {
		s, err := model.ParseJobStatus(v)
		if err != nil {
			return &errs.ErrValidation{Message: "Invalid job status: " + v + ".", Field: "status"}
		}
		status = &s
	}
	olderThan, err := common.DurationParam(r, "olderThan")
	if err != nil {
		return err
	}

	js, err := store.QueryJobs(ctx, status, olderThan)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, js)
}

// HandleRetrieve returns the job to its owner or to site admins.
func (store *Store) HandleRetrieve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	job, err := store.db.Jobs.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if !canUpdate(job, user, common.CurrentToken(ctx)) {
		return &errs.ErrAccess{Message: "Read access denied for job " + job.ID + " (user " + user.ID + ")."}
	}
	return common.JSON(w, http.StatusOK, job)
}
