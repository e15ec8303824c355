package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/store"
)

type fakeScheduler struct {
	err       error
	scheduled []string
}

func (f *fakeScheduler) Schedule(_ context.Context, job *model.Job) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, job.ID)
	return nil
}

func (f *fakeScheduler) Close() error { return nil }

func newDB(t *testing.T) *store.DB {
	t.Helper()
	backend, err := store.OpenBackend(t.Context(), "fs", "", t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return store.New(backend, nil)
}

func Test_U_ScheduleJob(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		SchedErr   error
		ExpectErr  bool
		ExpectStat model.JobStatus
	}{
		"published": {
			ExpectStat: model.JobQueued,
		},
		"publish-failure": {
			SchedErr:   errors.New("broker unavailable"),
			ExpectErr:  true,
			ExpectStat: model.JobError,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			sched := &fakeScheduler{err: tt.SchedErr}
			jobs := NewStore(newDB(t), sched)
			job := jobs.CreateJob("Phase 1 submission: run", "covalic_score", "worker_handler", &model.User{ID: "u1"})

			err := jobs.ScheduleJob(ctx, job)
			if tt.ExpectErr {
				var ierr *errs.ErrInternal
				assert.ErrorAs(t, err, &ierr)
				assert.Empty(t, sched.scheduled)
			} else {
				require.NoError(t, err)
				assert.Equal(t, []string{job.ID}, sched.scheduled)
			}

			stored, err := jobs.db.Jobs.Load(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.ExpectStat, stored.Status)

			// A job is scheduled once
			assert.Error(t, jobs.ScheduleJob(ctx, stored))
		})
	}
}

func Test_U_UpdateJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	jobs := NewStore(newDB(t), &fakeScheduler{})
	job := jobs.CreateJob("title", "covalic_score", "worker_handler", &model.User{ID: "u1"})
	require.NoError(t, jobs.ScheduleJob(ctx, job))

	running := model.JobRunning
	job, err := jobs.UpdateJob(ctx, job, Update{
		Status:   &running,
		Log:      "Fetching inputs\n",
		Progress: &model.JobProgress{Total: 2, Current: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobRunning, job.Status)
	assert.Equal(t, []string{"Fetching inputs\n"}, job.Log)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 1., job.Progress.Current)

	require.NoError(t, jobs.MarkSuccess(ctx, job.ID))
	job, err = jobs.db.Jobs.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSuccess, job.Status)

	// Terminal jobs keep their status, but still get logs
	failed := model.JobError
	_, err = jobs.UpdateJob(ctx, job, Update{Status: &failed})
	var verr *errs.ErrValidation
	assert.ErrorAs(t, err, &verr)

	job, err = jobs.UpdateJob(ctx, job, Update{Log: "late line\n"})
	require.NoError(t, err)
	assert.Equal(t, model.JobSuccess, job.Status)
	assert.Len(t, job.Log, 2)

	// Marking an already terminated job is a no-op
	assert.NoError(t, jobs.MarkSuccess(ctx, job.ID))
}

func Test_U_QueryJobs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	jobs := NewStore(newDB(t), &fakeScheduler{})
	old := time.Now().Add(-2 * time.Hour).UTC()
	for _, j := range []*model.Job{
		{ID: "stale", Status: model.JobRunning, Created: old, Updated: old},
		{ID: "fresh", Status: model.JobRunning, Created: time.Now(), Updated: time.Now()},
		{ID: "done", Status: model.JobSuccess, Created: old, Updated: old},
	} {
		require.NoError(t, jobs.db.Jobs.Save(ctx, j))
	}

	running := model.JobRunning
	js, err := jobs.QueryJobs(ctx, &running, time.Hour)
	require.NoError(t, err)
	require.Len(t, js, 1)
	assert.Equal(t, "stale", js[0].ID)

	js, err = jobs.QueryJobs(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, js, 3)
}

func Test_U_CanUpdate(t *testing.T) {
	t.Parallel()

	job := &model.Job{ID: "j1", UserID: "owner"}

	var tests = map[string]struct {
		User     *model.User
		Token    *model.Token
		Expected bool
	}{
		"owner": {
			User:     &model.User{ID: "owner"},
			Expected: true,
		},
		"site-admin": {
			User:     &model.User{ID: "root", Admin: true},
			Expected: true,
		},
		"job-token": {
			User:     &model.User{ID: "scorer"},
			Token:    &model.Token{Scope: TokenScope("j1")},
			Expected: true,
		},
		"other-job-token": {
			User:     &model.User{ID: "scorer"},
			Token:    &model.Token{Scope: TokenScope("j2")},
			Expected: false,
		},
		"stranger": {
			User:     &model.User{ID: "someone"},
			Expected: false,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.Expected, canUpdate(job, tt.User, tt.Token))
		})
	}
}
