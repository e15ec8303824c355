package phase

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// SetAccess replaces the phase access list. The submissions folders
// follow the new phase admins.
func (store *Store) SetAccess(ctx context.Context, phase *model.Phase, acl access.ACL, public *bool) (*model.Phase, error) {
	phase.Access = acl.Clone()
	if public != nil {
		phase.Public = *public
	}
	phase.Updated = time.Now().UTC()
	if err := store.subs.SavePhase(ctx, phase); err != nil {
		return nil, err
	}
	global.Log().Info(global.WithPhaseID(ctx, phase.ID), "phase access updated")
	return phase, nil
}

type AccessRequest struct {
	Access access.ACL `json:"access"`
	Public *bool      `json:"public,omitempty"`
}

func (store *Store) HandleSetAccess(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	phase, err := common.Load(ctx, store.db.Phases, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Admin)
	if err != nil {
		return err
	}
	var req AccessRequest
	if err := common.DecodeBody(r, &req); err != nil {
		return err
	}

	phase, err = store.SetAccess(ctx, phase, req.Access, req.Public)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, phase)
}
