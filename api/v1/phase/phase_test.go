package phase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/api/v1/folder"
	"github.com/ctfer-io/covalic/api/v1/group"
	"github.com/ctfer-io/covalic/api/v1/job"
	"github.com/ctfer-io/covalic/api/v1/submission"
	"github.com/ctfer-io/covalic/api/v1/token"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/store"
)

type fixture struct {
	phases  *Store
	db      *store.DB
	creator *model.User
	chall   *model.Challenge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	backend, err := store.OpenBackend(ctx, "fs", "", t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	db := store.New(backend, nil)

	sched := jobs.NewLocal(1)
	t.Cleanup(func() { _ = sched.Close() })
	subs := submission.NewStore(db, token.NewStore(db, "secret", 0), job.NewStore(db, sched))

	f := &fixture{
		phases:  NewStore(db, subs, group.NewStore(db), folder.NewStore(db)),
		db:      db,
		creator: &model.User{ID: "orga"},
		chall:   &model.Challenge{ID: "chall-" + t.Name(), Name: "Liver"},
	}
	f.chall.Access.SetUserAccess(f.creator.ID, access.Ptr(access.Admin))
	f.chall.Access.SetUserAccess("co-orga", access.Ptr(access.Write))
	require.NoError(t, db.Users.Save(ctx, f.creator))
	require.NoError(t, db.Challenges.Save(ctx, f.chall))
	return f
}

func Test_I_CreatePhase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p1, err := f.phases.CreatePhase(ctx, f.chall, NewCreatePhaseRequest(" Training "), f.creator)
	require.NoError(t, err)
	assert.Equal(t, "Training", p1.Name)
	assert.Equal(t, 0, p1.Ordinal)
	assert.True(t, p1.MatchSubmissions)
	assert.True(t, p1.RequireOrganization)
	assert.False(t, p1.EnableOrganization)
	assert.False(t, p1.Active)
	assert.NotNil(t, p1.Meta)

	// Access inherits the challenge one
	lvl, ok := p1.Access.UserLevel("co-orga")
	assert.True(t, ok)
	assert.Equal(t, access.Write, lvl)
	lvl, ok = p1.Access.GroupLevel(p1.ParticipantGroupID)
	assert.True(t, ok)
	assert.Equal(t, access.Read, lvl)

	g, err := f.db.Groups.Load(ctx, p1.ParticipantGroupID)
	require.NoError(t, err)
	assert.Equal(t, "Liver Training participants", g.Name)
	gt, err := f.db.Folders.Load(ctx, p1.GroundTruthFolderID)
	require.NoError(t, err)
	assert.False(t, gt.Public)

	// Next phase reuses the group
	req := NewCreatePhaseRequest("Test")
	req.ParticipantGroupID = p1.ParticipantGroupID
	p2, err := f.phases.CreatePhase(ctx, f.chall, req, f.creator)
	require.NoError(t, err)
	assert.Equal(t, 1, p2.Ordinal)
	assert.Equal(t, p1.ParticipantGroupID, p2.ParticipantGroupID)

	phases, err := f.phases.QueryPhases(ctx, f.chall.ID, f.creator, 0, 0)
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, p1.ID, phases[0].ID)
}

func Test_U_CreatePhaseErrors(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	var tests = map[string]struct {
		Request   *CreatePhaseRequest
		ExpectErr any
	}{
		"no-name": {
			Request:   NewCreatePhaseRequest("  "),
			ExpectErr: &errs.ErrValidation{},
		},
		"bad-dates": {
			Request: &CreatePhaseRequest{
				Name:      "Phase",
				StartDate: &start,
				EndDate:   &end,
			},
			ExpectErr: &errs.ErrValidation{},
		},
		"unknown-group": {
			Request: &CreatePhaseRequest{
				Name:               "Phase",
				ParticipantGroupID: "missing",
			},
			ExpectErr: &errs.ErrNotFound{},
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			_, err := f.phases.CreatePhase(context.Background(), f.chall, tt.Request, f.creator)
			require.Error(t, err)
			assert.IsType(t, tt.ExpectErr, err)
		})
	}
}

func Test_U_UpdatePhase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.phases.CreatePhase(ctx, f.chall, NewCreatePhaseRequest("Phase"), f.creator)
	require.NoError(t, err)

	p.Metrics = map[string]model.Metric{"dice": {Weight: math.NaN()}}
	_, err = f.phases.UpdatePhase(ctx, p)
	assert.IsType(t, &errs.ErrValidation{}, err)

	p.Metrics = map[string]model.Metric{"dice": {Title: "Dice", Weight: 1}}
	p.ScoreTask = model.ScoreTask{DockerImage: "Not A Valid//Image"}
	_, err = f.phases.UpdatePhase(ctx, p)
	assert.IsType(t, &errs.ErrValidation{}, err)

	p.ScoreTask = model.ScoreTask{DockerImage: "covalic/liver-metrics:1.2", DockerArgs: []string{"--gt=$input{groundtruth}"}}
	_, err = f.phases.UpdatePhase(ctx, p)
	require.NoError(t, err)

	stored, err := f.db.Phases.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1., stored.Metrics["dice"].Weight)
	assert.Equal(t, "covalic/liver-metrics:1.2", stored.ScoreTask.DockerImage)
}

func Test_I_SetAccessSyncsFolders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.phases.CreatePhase(ctx, f.chall, NewCreatePhaseRequest("Phase"), f.creator)
	require.NoError(t, err)

	fd := &model.Folder{ID: "fd-" + t.Name(), CreatorID: "part"}
	fd.Access.SetUserAccess("part", access.Ptr(access.Admin))
	require.NoError(t, f.db.Folders.Save(ctx, fd))
	require.NoError(t, f.db.Submissions.Save(ctx, &model.Submission{ID: "s1", PhaseID: p.ID, FolderID: fd.ID, CreatorID: "part"}))

	acl := p.Access.Clone()
	acl.SetUserAccess("judge", access.Ptr(access.Write))
	_, err = f.phases.SetAccess(ctx, p, acl, nil)
	require.NoError(t, err)

	fd, err = f.db.Folders.Load(ctx, fd.ID)
	require.NoError(t, err)
	lvl, ok := fd.Access.UserLevel("judge")
	assert.True(t, ok)
	assert.Equal(t, access.Read, lvl)
	lvl, ok = fd.Access.UserLevel("part")
	assert.True(t, ok)
	assert.Equal(t, access.Admin, lvl)
}

func Test_I_Leaderboard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.phases.CreatePhase(ctx, f.chall, NewCreatePhaseRequest("Phase"), f.creator)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	score := func(v float64) *float64 { return &v }
	for _, s := range []*model.Submission{
		{ID: "a", CreatorID: "u1", Latest: true, OverallScore: score(0.8), Created: base},
		{ID: "b", CreatorID: "u2", Latest: true, OverallScore: score(0.9), Created: base},
		{ID: "c", CreatorID: "u3", Latest: true, OverallScore: score(0.8), Created: base.Add(time.Hour)},
		{ID: "old", CreatorID: "u2", Latest: false, OverallScore: score(1), Created: base},
		{ID: "pending", CreatorID: "u4", Latest: false, Created: base},
	} {
		s.PhaseID = p.ID
		require.NoError(t, f.db.Submissions.Save(ctx, s))
	}

	entries, err := f.phases.Leaderboard(ctx, p, f.creator, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].Submission.ID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "a", entries[1].Submission.ID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "c", entries[2].Submission.ID)
	assert.Equal(t, 2, entries[2].Rank)

	entries, err = f.phases.Leaderboard(ctx, p, f.creator, 1, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Submission.ID)

	// Hidden scores
	p.HideScores = true
	entries, err = f.phases.Leaderboard(ctx, p, &model.User{ID: "u1"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Nil(t, entries[0].Submission.OverallScore)
}
