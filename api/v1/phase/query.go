package phase

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// QueryPhases returns the phases of the challenge the user can read,
// by ordinal.
func (store *Store) QueryPhases(ctx context.Context, challengeID string, user *model.User, limit, offset int) ([]*model.Phase, error) {
	phases, err := store.db.Phases.Find(ctx, func(p *model.Phase) bool {
		return p.ChallengeID == challengeID
	})
	if err != nil {
		return nil, err
	}
	return common.Page(common.Filter(phases, user, access.Read), func(a, b *model.Phase) bool {
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.Created.Before(b.Created)
	}, offset, limit), nil
}

func (store *Store) HandleQuery(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user := common.CurrentUser(ctx)

	if err := common.RequireParams(r, "challengeId"); err != nil {
		return err
	}
	chall, err := common.Load(ctx, store.db.Challenges, common.Param(r, "challengeId"), user, access.Read)
	if err != nil {
		return err
	}
	limit, offset, err := common.PageParams(r)
	if err != nil {
		return err
	}

	phases, err := store.QueryPhases(ctx, chall.ID, user, limit, offset)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, phases)
}

func (store *Store) HandleRetrieve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	phase, err := common.Load(ctx, store.db.Phases, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Read)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, phase)
}
