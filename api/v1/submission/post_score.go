package submission

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/job"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// PostScore records the score of the submission, which recomputes its
// overall score and latest flag. The token the score was posted with
// is revoked, as the scoring job is over.
func (store *Store) PostScore(ctx context.Context, sub *model.Submission, score model.Score, user *model.User, tok *model.Token) (*model.Submission, error) {
	logger := global.Log()
	ctx = global.WithSubmissionID(global.WithPhaseID(ctx, sub.PhaseID), sub.ID)

	if _, err := common.Load(ctx, store.db.Phases, sub.PhaseID, user, access.Admin); err != nil {
		return nil, err
	}
	if score == nil {
		return nil, errs.NewValidation("Invalid JSON passed in request body: a score array is required.")
	}

	rescoring := sub.Scored()
	sub.OverallScore = nil
	sub.Score = score
	if err := store.Save(ctx, sub); err != nil {
		return nil, err
	}

	if err := store.tokens.Revoke(ctx, tok); err != nil {
		logger.Error(ctx, "revoking scoring token", zap.Error(err))
	}
	if jobID := scoringJobID(sub, tok); jobID != "" {
		if err := store.jobs.MarkSuccess(ctx, jobID); err != nil {
			logger.Error(global.WithJobID(ctx, jobID), "marking scoring job successful", zap.Error(err))
		}
	}

	logger.Info(ctx, "score posted", zap.Bool("rescoring", rescoring))
	return sub, nil
}

// scoringJobID returns the job that posted the score: the one the token
// is dedicated to, else the last one scheduled for the submission.
func scoringJobID(sub *model.Submission, tok *model.Token) string {
	if tok != nil {
		if id, ok := job.ScopeJobID(tok.Scope); ok {
			return id
		}
	}
	return sub.JobID
}

func (store *Store) HandlePostScore(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	sub, err := store.db.Submissions.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	var score model.Score
	if err := common.DecodeBody(r, &score); err != nil {
		return err
	}

	sub, err = store.PostScore(ctx, sub, score, user, common.CurrentToken(ctx))
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, sub)
}
