package submission

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/scoring"
)

// Save validates then saves the submission.
// A submission given a score but no overall score yet gets its averages
// and overall score computed, and becomes the latest of its group.
func (store *Store) Save(ctx context.Context, sub *model.Submission) error {
	if sub.Created.IsZero() {
		sub.Created = time.Now()
	}
	sub.Created = sub.Created.UTC()
	if sub.Approach == "default" {
		sub.Approach = ""
	}
	if sub.Meta == nil {
		sub.Meta = map[string]any{}
	}

	if sub.Score == nil || sub.OverallScore != nil {
		return store.db.Submissions.Save(ctx, sub)
	}

	phase, err := store.db.Phases.Load(ctx, sub.PhaseID)
	if err != nil {
		return err
	}
	sub.Score = scoring.ComputeAverageScores(sub.Score)
	overall := scoring.ComputeOverallScore(sub.Score, phase)
	sub.OverallScore = &overall
	sub.Latest = true
	scored := time.Now().UTC()
	sub.ScoredAt = &scored

	ctx = global.WithSubmissionID(ctx, sub.ID)
	return common.WithRWLock(ctx, common.SubmissionGroupKey(sub.PhaseID, sub.CreatorID, sub.Approach), func() error {
		// A rescoring may have been scheduled meanwhile
		if cur, err := store.db.Submissions.Load(ctx, sub.ID); err == nil {
			sub.JobID = cur.JobID
		}
		previous, err := store.db.Submissions.Find(ctx, func(o *model.Submission) bool {
			return o.ID != sub.ID && o.Latest && sameGroup(o, sub)
		})
		if err != nil {
			return err
		}
		for _, o := range previous {
			o.Latest = false
			if err := store.db.Submissions.Save(ctx, o); err != nil {
				return err
			}
		}
		if err := store.db.Submissions.Save(ctx, sub); err != nil {
			return err
		}

		global.Log().Info(ctx, "submission scored",
			zap.Float64("overall_score", overall),
			zap.Int("superseded", len(previous)),
		)
		return nil
	})
}

// sameGroup tells whether both submissions compete for the latest flag.
func sameGroup(a, b *model.Submission) bool {
	return a.PhaseID == b.PhaseID && a.CreatorID == b.CreatorID && a.Approach == b.Approach
}
