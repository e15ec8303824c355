package group

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// AddMember adds the user to the group, if not already a member.
func (store *Store) AddMember(ctx context.Context, g *model.Group, user *model.User) error {
	if user.InGroup(g.ID) {
		return nil
	}
	user.Groups = append(user.Groups, g.ID)
	if err := store.db.Users.Save(ctx, user); err != nil {
		return err
	}
	global.Log().Info(global.WithUserID(ctx, user.ID), "user joined group")
	return nil
}

func (store *Store) HandleAddMember(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller := common.CurrentUser(ctx)

	g, err := common.Load(ctx, store.db.Groups, chi.URLParam(r, "id"), caller, access.Write)
	if err != nil {
		return err
	}
	if err := common.RequireParams(r, "userId"); err != nil {
		return err
	}
	user, err := store.db.Users.Load(ctx, common.Param(r, "userId"))
	if err != nil {
		return err
	}

	if err := store.AddMember(ctx, g, user); err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, g)
}
