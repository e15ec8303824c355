package challenge

import (
	"context"
	"net/http"
	"strings"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// QueryChallenges lists the challenges the user can read, by name.
func (store *Store) QueryChallenges(ctx context.Context, user *model.User, limit, offset int) ([]*model.Challenge, error) {
	challs, err := store.db.Challenges.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	challs = common.Filter(challs, user, access.Read)
	return common.Page(challs, func(a, b *model.Challenge) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}, offset, limit), nil
}

func (store *Store) HandleQuery(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	limit, offset, err := common.PageParams(r)
	if err != nil {
		return err
	}

	challs, err := store.QueryChallenges(ctx, common.CurrentUser(ctx), limit, offset)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, challs)
}
