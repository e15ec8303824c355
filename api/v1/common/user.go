package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/store"
)

type userKey struct{}
type tokenKey struct{}

// WithUser stores the authenticated user and its token in the context.
func WithUser(ctx context.Context, user *model.User, token *model.Token) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return context.WithValue(ctx, tokenKey{}, token)
}

// CurrentUser returns the authenticated user, nil when anonymous.
func CurrentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}

// CurrentToken returns the token the request authenticated with.
func CurrentToken(ctx context.Context) *model.Token {
	t, _ := ctx.Value(tokenKey{}).(*model.Token)
	return t
}

// RequireUser returns the authenticated user, or errors.ErrUnauthenticated.
func RequireUser(ctx context.Context) (*model.User, error) {
	u := CurrentUser(ctx)
	if u == nil {
		return nil, errs.ErrUnauthenticated
	}
	return u, nil
}

// RequireAdmin checks the user is a site admin.
func RequireAdmin(user *model.User, msg string) error {
	if user == nil {
		return errs.ErrUnauthenticated
	}
	if !user.Admin {
		if msg == "" {
			msg = "Administrator access required."
		}
		return &errs.ErrAccess{Message: msg}
	}
	return nil
}

// RequireAccess checks the user holds the level on the document.
// An anonymous user lacking access gets errors.ErrUnauthenticated.
func RequireAccess(doc access.Controlled, kind, id string, user *model.User, lvl access.Level) error {
	if access.HasAccess(doc, user, lvl) {
		return nil
	}
	if user == nil {
		return errs.ErrUnauthenticated
	}
	return &errs.ErrAccess{
		Message: fmt.Sprintf("%s access denied for %s %s (user %s).", capitalize(lvl.String()), kind, id, user.ID),
	}
}

// Load returns the document of the collection if the user holds lvl on it.
func Load[T any, PT interface {
	*T
	access.Controlled
}](ctx context.Context, c *store.Collection[T], id string, user *model.User, lvl access.Level) (PT, error) {
	doc, err := c.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	pt := PT(doc)
	if err := RequireAccess(pt, c.Kind(), id, user, lvl); err != nil {
		return nil, err
	}
	return pt, nil
}

// Filter keeps the documents the user holds lvl on.
func Filter[T any, PT interface {
	*T
	access.Controlled
}](docs []*T, user *model.User, lvl access.Level) []*T {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		if access.HasAccess(PT(doc), user, lvl) {
			out = append(out, doc)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
