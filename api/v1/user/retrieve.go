package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
)

func (store *Store) HandleMe(w http.ResponseWriter, r *http.Request) error {
	user, err := common.RequireUser(r.Context())
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, user.View(user))
}

func (store *Store) HandleGet(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	viewer, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	user, err := store.db.Users.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, user.View(viewer))
}
