package token

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Revoke removes the token. Revoking a removed token is a no-op.
func (store *Store) Revoke(ctx context.Context, tok *model.Token) error {
	if tok == nil {
		return nil
	}
	if err := store.db.Tokens.Remove(ctx, tok.ID); err != nil {
		if _, ok := err.(*errs.ErrNotFound); ok {
			return nil
		}
		return err
	}
	return nil
}

// PurgeExpired removes every expired token, and returns how many.
func (store *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := time.Now()
	toks, err := store.db.Tokens.Find(ctx, func(t *model.Token) bool {
		return t.Expired(now)
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, tok := range toks {
		if err := store.Revoke(ctx, tok); err != nil {
			global.Log().Error(ctx, "removing expired token",
				zap.Error(err),
				zap.String("token_id", tok.ID),
			)
			continue
		}
		removed++
	}
	return removed, nil
}

func (store *Store) HandlePurgeExpired(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if err := common.RequireAdmin(common.CurrentUser(ctx), ""); err != nil {
		return err
	}

	removed, err := store.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	global.Log().Info(ctx, "purged expired tokens", zap.Int("removed", removed))
	return common.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}
