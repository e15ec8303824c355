package challenge

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// UpdateChallengeRequest holds the fields to update, nil ones are kept.
type UpdateChallengeRequest struct {
	Name         *string
	Description  *string
	Instructions *string
	Organizers   *string
	Public       *bool
	StartDate    *time.Time
	EndDate      *time.Time
}

func (store *Store) UpdateChallenge(ctx context.Context, chall *model.Challenge, req *UpdateChallengeRequest) (*model.Challenge, error) {
	ctx = global.WithChallengeID(ctx, chall.ID)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errs.MissingParam("name")
		}
		chall.Name = name
	}
	setStripped(&chall.Description, req.Description)
	setStripped(&chall.Instructions, req.Instructions)
	setStripped(&chall.Organizers, req.Organizers)
	if req.Public != nil {
		chall.Public = *req.Public
	}
	if req.StartDate != nil {
		chall.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		chall.EndDate = req.EndDate
	}
	if err := validateDates(chall.StartDate, chall.EndDate); err != nil {
		return nil, err
	}
	chall.Updated = time.Now().UTC()

	if err := common.WithRWLock(ctx, common.ChallengesKey, func() error {
		if err := store.checkUniqueName(ctx, chall); err != nil {
			return err
		}
		return store.db.Challenges.Save(ctx, chall)
	}); err != nil {
		return nil, err
	}

	global.Log().Info(ctx, "challenge updated")
	return chall, nil
}

// SetAccess replaces the challenge access list.
func (store *Store) SetAccess(ctx context.Context, chall *model.Challenge, acl access.ACL, public *bool) (*model.Challenge, error) {
	chall.Access = acl.Clone()
	if public != nil {
		chall.Public = *public
	}
	chall.Updated = time.Now().UTC()
	if err := store.db.Challenges.Save(ctx, chall); err != nil {
		return nil, err
	}
	global.Log().Info(global.WithChallengeID(ctx, chall.ID), "challenge access updated")
	return chall, nil
}

func setStripped(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (store *Store) HandleUpdate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	chall, err := common.Load(ctx, store.db.Challenges, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Write)
	if err != nil {
		return err
	}

	req := &UpdateChallengeRequest{
		Name:         common.OptParam(r, "name"),
		Description:  common.OptParam(r, "description"),
		Instructions: common.OptParam(r, "instructions"),
		Organizers:   common.OptParam(r, "organizers"),
	}
	if common.OptParam(r, "public") != nil {
		public, err := common.BoolParam(r, "public", chall.Public)
		if err != nil {
			return err
		}
		req.Public = &public
	}
	if req.StartDate, err = common.DateParam(r, "startDate"); err != nil {
		return err
	}
	if req.EndDate, err = common.DateParam(r, "endDate"); err != nil {
		return err
	}

	chall, err = store.UpdateChallenge(ctx, chall, req)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, chall)
}

// AccessRequest is the body of access updates.
type AccessRequest struct {
	Access access.ACL `json:"access"`
	Public *bool      `json:"public,omitempty"`
}

func (store *Store) HandleSetAccess(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	chall, err := common.Load(ctx, store.db.Challenges, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Admin)
	if err != nil {
		return err
	}
	var req AccessRequest
	if err := common.DecodeBody(r, &req); err != nil {
		return err
	}

	chall, err = store.SetAccess(ctx, chall, req.Access, req.Public)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, chall)
}
