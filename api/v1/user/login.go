package user

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/auth"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

type AuthResult struct {
	Token   string          `json:"token"`
	Expires time.Time       `json:"expires"`
	User    *model.UserView `json:"user"`
}

// Login checks the credentials of a user, by login or email, and issues
// a token.
func (store *Store) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	user, err := store.db.Users.FindOne(ctx, func(u *model.User) bool {
		return u.Login == login || u.Email == login
	})
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(password, user.Salt) {
		return nil, &errs.ErrAccess{Message: "Login failed."}
	}

	tok, raw, err := store.tokens.Create(ctx, user, "", 0)
	if err != nil {
		return nil, err
	}
	global.Log().Info(global.WithUserID(ctx, user.ID), "user logged in")

	return &AuthResult{
		Token:   raw,
		Expires: tok.Expires,
		User:    user.View(user),
	}, nil
}

func (store *Store) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	login, password, ok := r.BasicAuth()
	if !ok {
		if err := common.RequireParams(r, "login", "password"); err != nil {
			return err
		}
		login, password = r.FormValue("login"), r.FormValue("password")
	}
	res, err := store.Login(r.Context(), login, password)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, res)
}
