package phase

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/submission"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/scoring"
)

// Leaderboard ranks the latest scored submissions of the phase.
// Scores are hidden to the user when the phase says so.
func (store *Store) Leaderboard(ctx context.Context, phase *model.Phase, user *model.User, limit, offset int) ([]scoring.Entry, error) {
	subs, err := store.db.Submissions.Find(ctx, func(s *model.Submission) bool {
		return s.PhaseID == phase.ID && s.Latest
	})
	if err != nil {
		return nil, err
	}

	ranked := scoring.Rank(subs)
	entries := make([]*scoring.Entry, 0, len(ranked))
	for i := range ranked {
		entries = append(entries, &ranked[i])
	}

	out := []scoring.Entry{}
	for _, e := range common.Page(entries, nil, offset, limit) {
		out = append(out, scoring.Entry{
			Rank:       e.Rank,
			Submission: submission.Present(e.Submission, phase, user),
		})
	}
	return out, nil
}

func (store *Store) HandleLeaderboard(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user := common.CurrentUser(ctx)
	phase, err := common.Load(ctx, store.db.Phases, chi.URLParam(r, "id"), user, access.Read)
	if err != nil {
		return err
	}
	limit, offset, err := common.PageParams(r)
	if err != nil {
		return err
	}

	entries, err := store.Leaderboard(ctx, phase, user, limit, offset)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, entries)
}
