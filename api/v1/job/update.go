package job

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Update is a change of a job status, progress or log.
type Update struct {
	Status   *model.JobStatus
	Progress *model.JobProgress
	Log      string
}

// UpdateJob applies the update. A terminal job no longer changes status,
// but its log can still be appended to.
func (store *Store) UpdateJob(ctx context.Context, job *model.Job, up Update) (*model.Job, error) {
	ctx = global.WithJobID(ctx, job.ID)

	if up.Status != nil && *up.Status != job.Status {
		if job.Status.Terminal() {
			return nil, &errs.ErrValidation{
				Message: "Job " + job.ID + " is already " + job.Status.String() + ".",
				Field:   "status",
			}
		}
		job.Status = *up.Status
	}
	if up.Progress != nil {
		job.Progress = up.Progress
	}
	if up.Log != "" {
		job.Log = append(job.Log, up.Log)
	}
	job.Updated = time.Now().UTC()

	if err := store.db.Jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	global.Log().Debug(ctx, "job updated", zap.Stringer("status", job.Status))
	return job, nil
}

// MarkSuccess sets a job which is not over yet as successful.
func (store *Store) MarkSuccess(ctx context.Context, jobID string) error {
	job, err := store.db.Jobs.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}
	status := model.JobSuccess
	_, err = store.UpdateJob(ctx, job, Update{Status: &status})
	return err
}

// canUpdate tells whether the caller may update the job: its owner, a
// site admin, or a token issued for this job.
func canUpdate(job *model.Job, user *model.User, tok *model.Token) bool {
	if user.IsAdmin() || (user != nil && user.ID == job.UserID) {
		return true
	}
	return tok != nil && tok.Scope == TokenScope(job.ID)
}

func (store *Store) HandleUpdate(w http.ResponseWriter, r *http.Request) error {
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
		return &errs.ErrAccess{Message: "Write access denied for job " + job.ID + " (user " + user.ID + ")."}
	}

	up, err := parseUpdate(r)
	if err != nil {
		return err
	}
	job, err = store.UpdateJob(ctx, job, up)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, job)
}

func parseUpdate(r *http.Request) (Update, error) {
	up := Update{Log: r.FormValue("log")}

	if v := common.Param(r, "status"); v != "" {
		status, err := model.ParseJobStatus(v)
		if err != nil {
			return up, &errs.ErrValidation{Message: "Invalid job status: " + v + ".", Field: "status"}
		}
		up.Status = &status
	}

	total, current := common.Param(r, "progressTotal"), common.Param(r, "progressCurrent")
	if total != "" || current != "" {
		p := &model.JobProgress{Message: common.Param(r, "progressMessage")}
		var err error
		if p.Total, err = parseFloat("progressTotal", total); err != nil {
			return up, err
		}
		if p.Current, err = parseFloat("progressCurrent", current); err != nil {
			return up, err
		}
		up.Progress = p
	}
	return up, nil
}

func parseFloat(name, v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &errs.ErrValidation{Message: "Parameter '" + name + "' must be a number.", Field: name}
	}
	return f, nil
}
