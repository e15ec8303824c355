package token

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/auth"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Create stores a token of the user and returns it along its signed form.
// A non-positive ttl falls back to the store default.
func (store *Store) Create(ctx context.Context, user *model.User, scope string, ttl time.Duration) (*model.Token, string, error) {
	if ttl <= 0 {
		ttl = store.ttl
	}
	now := time.Now().UTC()
	tok := &model.Token{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Scope:   scope,
		Created: now,
		Expires: now.Add(ttl),
	}
	raw, err := auth.GenerateToken(store.secret, tok)
	if err != nil {
		return nil, "", &errs.ErrInternal{Sub: err}
	}
	if err := store.db.Tokens.Save(ctx, tok); err != nil {
		return nil, "", err
	}

	global.Log().Debug(global.WithUserID(ctx, user.ID), "token created")
	return tok, raw, nil
}
