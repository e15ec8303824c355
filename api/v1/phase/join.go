package phase

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Join adds the user to the participant group of the phase.
func (store *Store) Join(ctx context.Context, phase *model.Phase, user *model.User) error {
	g, err := store.db.Groups.Load(ctx, phase.ParticipantGroupID)
	if err != nil {
		return err
	}
	if err := store.groups.AddMember(ctx, g, user); err != nil {
		return err
	}
	global.Log().Info(global.WithPhaseID(ctx, phase.ID), "user joined phase")
	return nil
}

func (store *Store) HandleJoin(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	phase, err := common.Load(ctx, store.db.Phases, chi.URLParam(r, "id"), user, access.Read)
	if err != nil {
		return err
	}

	if err := store.Join(ctx, phase, user); err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, phase)
}
