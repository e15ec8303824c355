package challenge

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

type CreateChallengeRequest struct {
	Name         string
	Description  string
	Instructions string
	Organizers   string
	Public       bool
	StartDate    *time.Time
	EndDate      *time.Time
}

func (store *Store) CreateChallenge(ctx context.Context, req *CreateChallengeRequest, creator *model.User) (*model.Challenge, error) {
	logger := global.Log()
	span := trace.SpanFromContext(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.MissingParam("name")
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	chall := &model.Challenge{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Instructions: strings.TrimSpace(req.Instructions),
		Organizers:   strings.TrimSpace(req.Organizers),
		CreatorID:    creator.ID,
		Public:       req.Public,
		Access:       access.ACL{Users: []access.Entry{}, Groups: []access.Entry{}},
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Created:      now,
		Updated:      now,
	}
	chall.Access.SetUserAccess(creator.ID, access.Ptr(access.Admin))
	ctx = global.WithChallengeID(ctx, chall.ID)

	// 1. Lock challenges names, check unicity then save
	span.AddEvent("lock challenges")
	if err := common.WithRWLock(ctx, common.ChallengesKey, func() error {
		if err := store.checkUniqueName(ctx, chall); err != nil {
			return err
		}
		return store.db.Challenges.Save(ctx, chall)
	}); err != nil {
		return nil, err
	}
	span.AddEvent("unlocked challenges")

	logger.Info(ctx, "challenge created successfully", zap.String("name", chall.Name))
	common.ChallengesUDCounter().Add(ctx, 1)

	return chall, nil
}

func (store *Store) checkUniqueName(ctx context.Context, chall *model.Challenge) error {
	dup, err := store.db.Challenges.FindOne(ctx, func(c *model.Challenge) bool {
		return c.ID != chall.ID && strings.EqualFold(c.Name, chall.Name)
	})
	if err != nil {
		return err
	}
	if dup != nil {
		return &errs.ErrValidation{
			Message: "A challenge with that name already exists.",
			Field:   "name",
		}
	}
	return nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return &errs.ErrValidation{
			Message: "Invalid start date: start date must not be after end date.",
			Field:   "startDate",
		}
	}
	return nil
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
	start, err := common.DateParam(r, "startDate")
	if err != nil {
		return err
	}
	end, err := common.DateParam(r, "endDate")
	if err != nil {
		return err
	}

	chall, err := store.CreateChallenge(ctx, &CreateChallengeRequest{
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		Instructions: r.FormValue("instructions"),
		Organizers:   r.FormValue("organizers"),
		Public:       public,
		StartDate:    start,
		EndDate:      end,
	}, user)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, chall)
}
