package user

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/auth"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

var loginRegex = regexp.MustCompile(`^[a-z][\da-z\-\.]{3,}$`)

type CreateUserRequest struct {
	Login     string
	Email     string
	FirstName string
	LastName  string
	Password  string
	// Admin is only honored for the bootstrap administrator.
	Admin bool
}

func (req *CreateUserRequest) validate() error {
	req.Login = strings.ToLower(strings.TrimSpace(req.Login))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if !loginRegex.MatchString(req.Login) {
		return &errs.ErrValidation{
			Message: "Login must be at least 4 characters, start with a letter, and may only contain letters, numbers, dashes, and dots.",
			Field:   "login",
		}
	}
	if !strings.Contains(req.Email, "@") {
		return &errs.ErrValidation{Message: "Invalid email address.", Field: "email"}
	}
	if req.FirstName == "" {
		return &errs.ErrValidation{Message: "First name must not be empty.", Field: "firstName"}
	}
	if req.LastName == "" {
		return &errs.ErrValidation{Message: "Last name must not be empty.", Field: "lastName"}
	}
	if len(req.Password) < 6 {
		return &errs.ErrValidation{Message: "Password must be at least 6 characters.", Field: "password"}
	}
	return nil
}

// CreateUser registers a user. The first user ever registered is a
// site admin.
func (store *Store) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, &errs.ErrInternal{Sub: err}
	}

	var user *model.User
	err = common.WithRWLock(ctx, common.UsersKey, func() error {
		users, err := store.db.Users.Find(ctx, nil)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Login == req.Login {
				return &errs.ErrValidation{Message: "That login is already registered.", Field: "login"}
			}
			if u.Email == req.Email {
				return &errs.ErrValidation{Message: "That email is already registered.", Field: "email"}
			}
		}

		user = &model.User{
			ID:        uuid.NewString(),
			Login:     req.Login,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Admin:     req.Admin || len(users) == 0,
			Groups:    []string{},
			Salt:      hash,
			Created:   time.Now().UTC(),
		}
		return store.db.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	global.Log().Info(global.WithUserID(ctx, user.ID), "user registered",
		zap.String("login", user.Login),
		zap.Bool("admin", user.Admin),
	)
	return user, nil
}

// Bootstrap creates the configured administrator when no user exists yet.
func (store *Store) Bootstrap(ctx context.Context, login, email, password string) error {
	if login == "" || password == "" {
		return nil
	}
	n, err := store.db.Users.Count(ctx, nil)
	if err != nil || n != 0 {
		return err
	}
	_, err = store.CreateUser(ctx, &CreateUserRequest{
		Login:     login,
		Email:     email,
		FirstName: "Covalic",
		LastName:  "Administrator",
		Password:  password,
		Admin:     true,
	})
	return err
}

func (store *Store) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	if err := common.RequireParams(r, "login", "email", "firstName", "lastName", "password"); err != nil {
		return err
	}
	user, err := store.CreateUser(r.Context(), &CreateUserRequest{
		Login:     r.FormValue("login"),
		Email:     r.FormValue("email"),
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Password:  r.FormValue("password"),
	})
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, user.View(user))
}
