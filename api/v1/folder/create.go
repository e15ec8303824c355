package folder

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// CreateFolder creates a folder administrated by its creator.
func (store *Store) CreateFolder(ctx context.Context, name, description string, public bool, creator *model.User) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &errs.ErrValidation{Message: "Folder name must not be empty.", Field: "name"}
	}

	now := time.Now().UTC()
	f := &model.Folder{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatorID:   creator.ID,
		Public:      public,
		Access:      access.ACL{Users: []access.Entry{}, Groups: []access.Entry{}},
		Created:     now,
		Updated:     now,
	}
	f.Access.SetUserAccess(creator.ID, access.Ptr(access.Admin))
	if err := store.db.Folders.Save(ctx, f); err != nil {
		return nil, err
	}

	global.Log().Info(ctx, "folder created", zap.String("folder_id", f.ID))
	return f, nil
}

func (store *Store) HandleCreate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	if err := common.RequireParams(r, "name"); err != nil {
		return err
	}
	public, err := common.BoolParam(r, "public", false)
	if err != nil {
		return err
	}

	f, err := store.CreateFolder(ctx, r.FormValue("name"), r.FormValue("description"), public, user)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, f)
}
