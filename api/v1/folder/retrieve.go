package folder

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/access"
)

func (store *Store) HandleGet(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	f, err := common.Load(ctx, store.db.Folders, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Read)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, f)
}
