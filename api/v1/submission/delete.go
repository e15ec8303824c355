package submission

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// DeleteSubmission removes the submission. When it was the latest of its
// group, the most recently scored submission left takes the flag over.
func (store *Store) DeleteSubmission(ctx context.Context, sub *model.Submission) error {
	ctx = global.WithSubmissionID(global.WithPhaseID(ctx, sub.PhaseID), sub.ID)

	if err := common.WithRWLock(ctx, common.SubmissionGroupKey(sub.PhaseID, sub.CreatorID, sub.Approach), func() error {
		if err := store.db.Submissions.Remove(ctx, sub.ID); err != nil {
			return err
		}
		if !sub.Latest {
			return nil
		}

		siblings, err := store.db.Submissions.Find(ctx, func(o *model.Submission) bool {
			return o.Scored() && sameGroup(o, sub)
		})
		if err != nil {
			return err
		}
		var next *model.Submission
		for _, o := range siblings {
			if next == nil || scoredAt(o).After(scoredAt(next)) {
				next = o
			}
		}
		if next == nil {
			return nil
		}
		next.Latest = true
		if err := store.db.Submissions.Save(ctx, next); err != nil {
			return err
		}
		global.Log().Info(ctx, "latest submission promoted", zap.String("promoted_id", next.ID))
		return nil
	}); err != nil {
		return err
	}

	global.Log().Info(ctx, "submission deleted")
	common.SubmissionsUDCounter().Add(ctx, -1)
	return nil
}

// scoredAt falls back on the creation date for submissions scored before
// the scoring date was recorded.
func scoredAt(sub *model.Submission) time.Time {
	if sub.ScoredAt != nil {
		return *sub.ScoredAt
	}
	return sub.Created
}

func (store *Store) HandleDelete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	sub, err := store.db.Submissions.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if user.ID != sub.CreatorID {
		if _, err := common.Load(ctx, store.db.Phases, sub.PhaseID, user, access.Write); err != nil {
			return err
		}
	}

	if err := store.DeleteSubmission(ctx, sub); err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, map[string]string{"message": "Deleted submission " + sub.Title + "."})
}
