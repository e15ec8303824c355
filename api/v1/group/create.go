package group

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

// CreateGroup creates a group administrated by its creator.
func (store *Store) CreateGroup(ctx context.Context, name, description string, public bool, creator *model.User) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &errs.ErrValidation{Message: "Group name must not be empty.", Field: "name"}
	}

	g := &model.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Public:      public,
		Access:      access.ACL{Users: []access.Entry{}, Groups: []access.Entry{}},
		Created:     time.Now().UTC(),
	}
	g.Access.SetUserAccess(creator.ID, access.Ptr(access.Admin))
	if err := store.db.Groups.Save(ctx, g); err != nil {
		return nil, err
	}

	global.Log().Info(ctx, "group created",
		zap.String("group_id", g.ID),
		zap.String("name", g.Name),
	)
	return g, nil
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

	g, err := store.CreateGroup(ctx, r.FormValue("name"), r.FormValue("description"), public, user)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, g)
}
