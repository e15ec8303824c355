package token

import (
	"context"
	"time"

	"github.com/ctfer-io/covalic/pkg/auth"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Authenticate resolves a signed token to its user. The token must be
// validly signed, still stored and not expired.
func (store *Store) Authenticate(ctx context.Context, raw string) (*model.User, *model.Token, error) {
	claims, err := auth.ValidateToken(store.secret, raw)
	if err != nil {
		return nil, nil, errs.ErrUnauthenticated
	}

	tok, err := store.db.Tokens.Load(ctx, claims.ID)
	if err != nil {
		if _, ok := err.(*errs.ErrNotFound); ok {
			return nil, nil, errs.ErrUnauthenticated
		}
		return nil, nil, err
	}
	if tok.Expired(time.Now()) || tok.UserID != claims.UserID {
		return nil, nil, errs.ErrUnauthenticated
	}

	user, err := store.db.Users.Load(ctx, tok.UserID)
	if err != nil {
		if _, ok := err.(*errs.ErrNotFound); ok {
			return nil, nil, errs.ErrUnauthenticated
		}
		return nil, nil, err
	}
	return user, tok, nil
}
