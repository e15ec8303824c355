package submission

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/api/v1/job"
	"github.com/ctfer-io/covalic/api/v1/token"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/fs"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/store"
)

const scorerID = "scorer"

func TestMain(m *testing.M) {
	global.Conf.Scoring.UserID = scorerID
	os.Exit(m.Run())
}

type fakeScheduler struct {
	err  error
	jobs []*model.Job
	// run plays the job before Schedule returns, as a fast worker would.
	run func(context.Context, *model.Job)
}

func (f *fakeScheduler) Schedule(ctx context.Context, j *model.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, j)
	if f.run != nil {
		f.run(ctx, j)
	}
	return nil
}

func (f *fakeScheduler) Close() error { return nil }

type fixture struct {
	subs  *Store
	db    *store.DB
	sched *fakeScheduler

	organizer, participant *model.User
	phase                  *model.Phase
	groundTruth, folder    *model.Folder
}

func newFixture(t *testing.T, schedErr error) *fixture {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	backend, err := store.OpenBackend(ctx, "fs", "", dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	assets, err := fs.NewAssets(dir)
	require.NoError(t, err)
	db := store.New(backend, assets)

	sched := &fakeScheduler{err: schedErr}
	f := &fixture{
		subs:        NewStore(db, token.NewStore(db, "secret", time.Hour), job.NewStore(db, sched)),
		db:          db,
		sched:       sched,
		organizer:   &model.User{ID: "orga", FirstName: "Org", LastName: "Anizer"},
		participant: &model.User{ID: "part", FirstName: "Par", LastName: "Ticipant", Groups: []string{"participants"}},
	}
	for _, u := range []*model.User{f.organizer, f.participant, {ID: scorerID, FirstName: "Sco", LastName: "Rer"}} {
		require.NoError(t, db.Users.Save(ctx, u))
	}

	f.groundTruth = &model.Folder{ID: "gt", Name: "Ground truth", CreatorID: f.organizer.ID}
	f.groundTruth.Access.SetUserAccess(f.organizer.ID, access.Ptr(access.Admin))
	f.folder = &model.Folder{ID: "sub-folder", Name: "Run 1", CreatorID: f.participant.ID}
	f.folder.Access.SetUserAccess(f.participant.ID, access.Ptr(access.Admin))
	for _, fd := range []*model.Folder{f.groundTruth, f.folder} {
		require.NoError(t, db.Folders.Save(ctx, fd))
	}

	f.phase = &model.Phase{
		ID:                  "phase-" + t.Name(),
		Name:                "Phase 1",
		Active:              true,
		ParticipantGroupID:  "participants",
		GroundTruthFolderID: f.groundTruth.ID,
	}
	f.phase.Access.SetUserAccess(f.organizer.ID, access.Ptr(access.Admin))
	f.phase.Access.SetGroupAccess("participants", access.Ptr(access.Read))
	require.NoError(t, db.Phases.Save(ctx, f.phase))

	return f
}

func (f *fixture) submit(t *testing.T, title string) *model.Submission {
	t.Helper()
	sub, err := f.subs.Submit(context.Background(), &CreateSubmissionRequest{
		Creator: f.participant,
		Phase:   f.phase,
		Folder:  f.folder,
		Title:   title,
	}, "http://covalic.local/api/v1")
	require.NoError(t, err)
	return sub
}

func score(values ...float64) model.Score {
	s := model.Score{}
	for i, v := range values {
		s = append(s, model.DatasetScore{
			Dataset: string(rune('a' + i)),
			Metrics: []model.MetricValue{{Name: "dice", Value: model.Number(v)}},
		})
	}
	return s
}

func Test_I_SubmitAndScore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	first := f.submit(t, "first")
	require.Len(t, f.sched.jobs, 1)
	j := f.sched.jobs[0]
	assert.Equal(t, j.ID, first.JobID)
	assert.Equal(t, "Phase 1 submission: Run 1", j.Title)
	assert.Equal(t, model.JobQueued, j.Status)
	assert.False(t, j.Rescoring)
	require.NotNil(t, j.Kwargs)
	assert.Equal(t, "docker.io/girder/covalic-metrics:latest", j.Kwargs.Task.DockerImage)
	assert.Equal(t, "http://covalic.local/api/v1/covalic_submission/"+first.ID+"/score", j.Kwargs.Outputs["_stdout"].URL)

	// Scoring user grants
	phase, err := f.db.Phases.Load(ctx, f.phase.ID)
	require.NoError(t, err)
	lvl, ok := phase.Access.UserLevel(scorerID)
	require.True(t, ok)
	assert.Equal(t, access.Admin, lvl)
	folder, err := f.db.Folders.Load(ctx, f.folder.ID)
	require.NoError(t, err)
	assert.True(t, access.HasAccess(folder, &model.User{ID: scorerID}, access.Read))
	assert.True(t, access.HasAccess(folder, f.organizer, access.Read))
	gt, err := f.db.Folders.Load(ctx, f.groundTruth.ID)
	require.NoError(t, err)
	assert.True(t, access.HasAccess(gt, &model.User{ID: scorerID}, access.Read))

	// The scoring job token posts the score
	toks, err := f.db.Tokens.Find(ctx, func(tk *model.Token) bool { return tk.Scope == job.TokenScope(j.ID) })
	require.NoError(t, err)
	require.Len(t, toks, 1)

	first, err = f.subs.PostScore(ctx, first, score(0.5, 1), &model.User{ID: scorerID}, toks[0])
	require.NoError(t, err)
	require.NotNil(t, first.OverallScore)
	assert.InDelta(t, 0.75, *first.OverallScore, 1e-9)
	assert.True(t, first.Latest)
	assert.Equal(t, model.AverageDataset, first.Score[0].Dataset)

	exists, err := f.db.Tokens.Exists(ctx, toks[0].ID)
	require.NoError(t, err)
	assert.False(t, exists)
	j, err = f.db.Jobs.Load(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSuccess, j.Status)

	// A newer score takes the latest flag over
	second := f.submit(t, "second")
	second, err = f.subs.PostScore(ctx, second, score(0.2), &model.User{ID: scorerID}, nil)
	require.NoError(t, err)
	assert.True(t, second.Latest)
	first, err = f.db.Submissions.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, first.Latest)

	// Deleting it gives the flag back
	require.NoError(t, f.subs.DeleteSubmission(ctx, second))
	first, err = f.db.Submissions.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, first.Latest)

	// Participants may not post scores
	_, err = f.subs.PostScore(ctx, first, score(1), f.participant, nil)
	var aerr *errs.ErrAccess
	assert.ErrorAs(t, err, &aerr)
}

func Test_I_SubmitSchedulingFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, errors.New("no broker"))

	_, err := f.subs.Submit(ctx, &CreateSubmissionRequest{
		Creator: f.participant,
		Phase:   f.phase,
		Folder:  f.folder,
		Title:   "lost",
	}, "http://covalic.local/api/v1")
	var ierr *errs.ErrInternal
	require.ErrorAs(t, err, &ierr)

	n, err := f.db.Submissions.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The scoring token is not left behind
	n, err = f.db.Tokens.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func Test_I_ScoreBeforeScheduleReturns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	scorer, err := f.db.Users.Load(ctx, scorerID)
	require.NoError(t, err)
	f.sched.run = func(ctx context.Context, j *model.Job) {
		sub, err := f.db.Submissions.Load(ctx, j.CovalicSubmissionID)
		require.NoError(t, err)
		toks, err := f.db.Tokens.Find(ctx, func(tk *model.Token) bool { return tk.Scope == job.TokenScope(j.ID) })
		require.NoError(t, err)
		require.Len(t, toks, 1)

		_, err = f.subs.PostScore(ctx, sub, score(0.4, 0.6), scorer, toks[0])
		require.NoError(t, err)
	}

	sub := f.submit(t, "fast")
	require.Len(t, f.sched.jobs, 1)
	j := f.sched.jobs[0]

	for _, got := range []*model.Submission{sub, mustLoad(t, f, sub.ID)} {
		assert.Equal(t, j.ID, got.JobID)
		require.NotNil(t, got.OverallScore)
		assert.InDelta(t, 0.5, *got.OverallScore, 1e-9)
		assert.True(t, got.Latest)
		assert.NotNil(t, got.ScoredAt)
	}

	j, err = f.db.Jobs.Load(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSuccess, j.Status)
}

func Test_I_RescoreKeepsSingleLatest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	scorer := &model.User{ID: scorerID}

	a := f.submit(t, "a")
	a, err := f.subs.PostScore(ctx, a, score(0.9), scorer, nil)
	require.NoError(t, err)
	require.True(t, a.Latest)

	// a is held while b takes the flag over
	b := f.submit(t, "b")
	_, err = f.subs.PostScore(ctx, mustLoad(t, f, b.ID), score(0.1), scorer, nil)
	require.NoError(t, err)

	rescored, err := f.subs.ScoreSubmission(ctx, a, "http://covalic.local/api/v1")
	require.NoError(t, err)
	assert.False(t, rescored.Latest)
	assert.Equal(t, f.sched.jobs[len(f.sched.jobs)-1].ID, rescored.JobID)

	latest, err := f.db.Submissions.Find(ctx, func(o *model.Submission) bool {
		return o.PhaseID == f.phase.ID && o.Latest
	})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, b.ID, latest[0].ID)
}

func Test_I_DeletePromotesLastScored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	scorer := &model.User{ID: scorerID}

	a := f.submit(t, "a")
	b := f.submit(t, "b")
	c := f.submit(t, "c")

	// Scored in another order than created
	for _, sub := range []*model.Submission{b, a, c} {
		_, err := f.subs.PostScore(ctx, mustLoad(t, f, sub.ID), score(0.5), scorer, nil)
		require.NoError(t, err)
	}
	c = mustLoad(t, f, c.ID)
	require.True(t, c.Latest)

	require.NoError(t, f.subs.DeleteSubmission(ctx, c))
	assert.True(t, mustLoad(t, f, a.ID).Latest)
	assert.False(t, mustLoad(t, f, b.ID).Latest)
}

func Test_U_ScoringUser(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		UserID        string
		ExpectMessage string
	}{
		"unset": {
			UserID:        "",
			ExpectMessage: "No scoring user ID is set. Please set one on the plugin configuration page.",
		},
		"unknown": {
			UserID:        "ghost",
			ExpectMessage: "Invalid scoring user setting (ghost).",
		},
		"configured": {
			UserID: scorerID,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)

			user, err := f.subs.scoringUser(context.Background(), tt.UserID)
			if tt.ExpectMessage == "" {
				require.NoError(t, err)
				assert.Equal(t, scorerID, user.ID)
				return
			}
			var serr *errs.ErrScoring
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.ExpectMessage, serr.Error())
		})
	}
}

func mustLoad(t *testing.T, f *fixture, id string) *model.Submission {
	t.Helper()
	sub, err := f.db.Submissions.Load(context.Background(), id)
	require.NoError(t, err)
	return sub
}

func Test_U_UpdateFolderAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	// A stranger was granted access, a writer of the phase was not
	folder := f.folder
	folder.Access.SetUserAccess("stranger", access.Ptr(access.Write))
	require.NoError(t, f.db.Folders.Save(ctx, folder))
	f.phase.Access.SetUserAccess("writer", access.Ptr(access.Write))
	f.phase.Access.SetUserAccess("reader", access.Ptr(access.Read))

	subs := []*model.Submission{
		{ID: "s1", FolderID: folder.ID},
		{ID: "s2", FolderID: "removed-folder"},
	}
	require.NoError(t, f.subs.UpdateFolderAccess(ctx, f.phase, subs))

	folder, err := f.db.Folders.Load(ctx, folder.ID)
	require.NoError(t, err)
	_, ok := folder.Access.UserLevel("stranger")
	assert.False(t, ok)
	_, ok = folder.Access.UserLevel("reader")
	assert.False(t, ok)
	lvl, ok := folder.Access.UserLevel("writer")
	assert.True(t, ok)
	assert.Equal(t, access.Read, lvl)
	lvl, ok = folder.Access.UserLevel(f.organizer.ID)
	assert.True(t, ok)
	assert.Equal(t, access.Read, lvl)
	lvl, ok = folder.Access.UserLevel(f.participant.ID)
	assert.True(t, ok)
	assert.Equal(t, access.Admin, lvl)

	var verr *errs.ErrValidation
	assert.ErrorAs(t, f.subs.UpdateFolderAccess(ctx, f.phase, nil), &verr)
}

func Test_U_MatchGroundTruth(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		GroundTruth []string
		Submitted   []string
		ExpectErr   bool
	}{
		"empty-ground-truth": {
			Submitted: []string{"anything.csv"},
		},
		"same-names": {
			GroundTruth: []string{"case1.nii.gz", "case2.nii.gz"},
			Submitted:   []string{"case2.mha", "case1.mha"},
		},
		"missing": {
			GroundTruth: []string{"case1.nii.gz", "case2.nii.gz"},
			Submitted:   []string{"case1.mha"},
			ExpectErr:   true,
		},
		"unexpected": {
			GroundTruth: []string{"case1.nii.gz"},
			Submitted:   []string{"case1.mha", "notes.txt"},
			ExpectErr:   true,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := newFixture(t, nil)

			for i, name := range tt.GroundTruth {
				require.NoError(t, f.db.Files.Save(ctx, &model.File{ID: "gt" + string(rune('0'+i)), FolderID: f.groundTruth.ID, Name: name}))
			}
			for i, name := range tt.Submitted {
				require.NoError(t, f.db.Files.Save(ctx, &model.File{ID: "sub" + string(rune('0'+i)), FolderID: f.folder.ID, Name: name}))
			}

			err := f.subs.matchGroundTruth(ctx, f.phase, f.folder)
			if tt.ExpectErr {
				var verr *errs.ErrValidation
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_U_Present(t *testing.T) {
	t.Parallel()

	overall := 0.9
	sub := &model.Submission{ID: "s", Score: score(0.9), OverallScore: &overall}
	phase := &model.Phase{HideScores: true}
	phase.Access.SetUserAccess("orga", access.Ptr(access.Write))

	var tests = map[string]struct {
		Phase      *model.Phase
		User       *model.User
		ExpectHide bool
	}{
		"shown": {
			Phase: &model.Phase{},
			User:  nil,
		},
		"hidden-anonymous": {
			Phase:      phase,
			ExpectHide: true,
		},
		"hidden-participant": {
			Phase:      phase,
			User:       &model.User{ID: "part"},
			ExpectHide: true,
		},
		"organizer": {
			Phase: phase,
			User:  &model.User{ID: "orga"},
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			out := Present(sub, tt.Phase, tt.User)
			if tt.ExpectHide {
				assert.Nil(t, out.Score)
				assert.Nil(t, out.OverallScore)
			} else {
				assert.Equal(t, sub, out)
			}
			// The original is never altered
			assert.NotNil(t, sub.OverallScore)
		})
	}
}
