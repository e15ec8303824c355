package submission

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/job"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/model"
)

const (
	// DefaultScoringImage runs phases without a scoring image.
	DefaultScoringImage = "girder/covalic-metrics:latest"

	defaultScoringTokenTTL = 7 * 24 * time.Hour
)

// ScoreSubmission schedules the job scoring the submission.
// The scoring user gets a token dedicated to the job, read access on
// both the submission and ground truth folders, and admin access on the
// phase to post the score back.
// The job is bound to the submission before being scheduled, as a worker
// may post the score back before Schedule returns.
func (store *Store) ScoreSubmission(ctx context.Context, sub *model.Submission, apiURL string) (_ *model.Submission, err error) {
	logger := global.Log()
	ctx = global.WithSubmissionID(global.WithPhaseID(ctx, sub.PhaseID), sub.ID)
	ctx, span := global.Tracer.Start(ctx, "submission.Score", trace.WithAttributes(
		attribute.String("submission.id", sub.ID),
		attribute.Bool("rescoring", sub.Scored()),
	))
	defer span.End()

	phase, err := store.db.Phases.Load(ctx, sub.PhaseID)
	if err != nil {
		return nil, err
	}
	folder, err := store.db.Folders.Load(ctx, sub.FolderID)
	if err != nil {
		return nil, err
	}
	creator, err := store.db.Users.Load(ctx, sub.CreatorID)
	if err != nil {
		return nil, err
	}

	j := store.jobs.CreateJob(fmt.Sprintf("%s submission: %s", phase.Name, folder.Name), jobs.ScoreJobType, jobs.ScoreJobHandler, creator)
	j.Rescoring = sub.Scored()
	j.CovalicSubmissionID = sub.ID
	ctx = global.WithJobID(ctx, j.ID)

	scorer, err := store.scoringUser(ctx, global.Conf.Scoring.UserID)
	if err != nil {
		return nil, err
	}
	ttl := global.Conf.Scoring.TokenTTL
	if ttl <= 0 {
		ttl = defaultScoringTokenTTL
	}
	tok, raw, err := store.tokens.Create(ctx, scorer, job.TokenScope(j.ID), ttl)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := store.tokens.Revoke(ctx, tok); rerr != nil {
			logger.Error(ctx, "revoking unused scoring token", zap.Error(rerr))
		}
	}()

	// Grant the scoring user what it needs to fetch the inputs and post the score
	if folder.Access.SetUserAccess(scorer.ID, access.Ptr(access.Read)) {
		if err := store.db.Folders.Save(ctx, folder); err != nil {
			return nil, err
		}
	}
	if !access.HasAccess(phase, scorer, access.Admin) {
		phase.Access.SetUserAccess(scorer.ID, access.Ptr(access.Admin))
		if err := store.SavePhase(ctx, phase); err != nil {
			return nil, err
		}
	}
	groundTruth, err := store.db.Folders.Load(ctx, phase.GroundTruthFolderID)
	if err != nil {
		return nil, err
	}
	if !access.HasAccess(groundTruth, scorer, access.Read) {
		groundTruth.Access.SetUserAccess(scorer.ID, access.Ptr(access.Read))
		if err := store.db.Folders.Save(ctx, groundTruth); err != nil {
			return nil, err
		}
	}

	image, err := scoringImage(phase)
	if err != nil {
		return nil, err
	}
	j.Kwargs = jobs.ScoreKwargs(jobs.ScoreParams{
		APIURL:              apiURL,
		Token:               raw,
		JobID:               j.ID,
		Title:               j.Title,
		SubmissionID:        sub.ID,
		SubmissionFolderID:  folder.ID,
		GroundTruthFolderID: groundTruth.ID,
		Image:               image,
		Args:                phase.ScoreTask.DockerArgs,
	})

	// Only the job is patched, the caller copy may be stale
	key := common.SubmissionGroupKey(sub.PhaseID, sub.CreatorID, sub.Approach)
	if err := common.WithRWLock(ctx, key, func() error {
		cur, err := store.db.Submissions.Load(ctx, sub.ID)
		if err != nil {
			return err
		}
		cur.JobID = j.ID
		return store.db.Submissions.Save(ctx, cur)
	}); err != nil {
		return nil, err
	}
	if err := store.jobs.ScheduleJob(ctx, j); err != nil {
		return nil, err
	}

	if cur, lerr := store.db.Submissions.Load(ctx, sub.ID); lerr != nil {
		logger.Error(ctx, "reloading scheduled submission", zap.Error(lerr))
		sub.JobID = j.ID
	} else {
		sub = cur
	}

	logger.Info(ctx, "submission scoring scheduled",
		zap.String("image", image),
		zap.Bool("rescoring", j.Rescoring),
	)
	common.ScoringJobsCounter().Add(ctx, 1)
	return sub, nil
}

func (store *Store) scoringUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, &errs.ErrScoring{Reason: "No scoring user ID is set. Please set one on the plugin configuration page."}
	}
	user, err := store.db.Users.Load(ctx, id)
	if err != nil {
		if _, ok := err.(*errs.ErrNotFound); ok {
			return nil, &errs.ErrScoring{Reason: fmt.Sprintf("Invalid scoring user setting (%s).", id)}
		}
		return nil, err
	}
	return user, nil
}

// scoringImage returns the normalized reference of the phase scoring
// image, pinned to its digest when configured to.
func scoringImage(phase *model.Phase) (string, error) {
	image := phase.ScoreTask.DockerImage
	if image == "" {
		image = global.Conf.Scoring.DefaultImage
	}
	if image == "" {
		image = DefaultScoringImage
	}
	ref, err := global.GetOCIManager().Normalize(image)
	if err != nil {
		return "", &errs.ErrScoring{Reason: err.Error()}
	}
	return ref, nil
}
