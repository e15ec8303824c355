package submission

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/access"
)

func (store *Store) HandleRescore(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	sub, err := store.db.Submissions.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if _, err := common.Load(ctx, store.db.Phases, sub.PhaseID, user, access.Write); err != nil {
		return err
	}

	sub, err = store.ScoreSubmission(ctx, sub, common.APIURL(r))
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, sub)
}
