package phase

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

type CreatePhaseRequest struct {
	Name         string
	Description  string
	Instructions string
	Type         string
	// ParticipantGroupID is an existing group to use, else one is created.
	ParticipantGroupID string

	Public    bool
	Active    bool
	StartDate *time.Time
	EndDate   *time.Time

	HideScores              bool
	MatchSubmissions        bool
	EnableOrganization      bool
	EnableOrganizationURL   bool
	EnableDocumentationURL  bool
	RequireOrganization     bool
	RequireOrganizationURL  bool
	RequireDocumentationURL bool

	Meta map[string]any
}

// NewCreatePhaseRequest returns a request with the default flags.
func NewCreatePhaseRequest(name string) *CreatePhaseRequest {
	return &CreatePhaseRequest{
		Name:                    name,
		MatchSubmissions:        true,
		RequireOrganization:     true,
		RequireOrganizationURL:  true,
		RequireDocumentationURL: true,
	}
}

func (store *Store) CreatePhase(ctx context.Context, chall *model.Challenge, req *CreatePhaseRequest, creator *model.User) (*model.Phase, error) {
	logger := global.Log()
	span := trace.SpanFromContext(ctx)
	ctx = global.WithChallengeID(ctx, chall.ID)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.MissingParam("name")
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	// 1. Resolve the participant group, or create one
	var participants *model.Group
	if req.ParticipantGroupID != "" {
		g, err := common.Load(ctx, store.db.Groups, req.ParticipantGroupID, creator, access.Read)
		if err != nil {
			return nil, err
		}
		participants = g
	}

	// 2. Phases are ordered by creation, among the ones the creator sees
	siblings, err := store.db.Phases.Find(ctx, func(p *model.Phase) bool {
		return p.ChallengeID == chall.ID
	})
	if err != nil {
		return nil, err
	}
	ordinal := len(common.Filter(siblings, creator, access.Read))

	if participants == nil {
		participants, err = store.groups.CreateGroup(ctx, chall.Name+" "+name+" participants",
			"Participants of the "+name+" phase of "+chall.Name+".", false, creator)
		if err != nil {
			return nil, err
		}
		span.AddEvent("participant group created")
	}
	groundTruth, err := store.folders.CreateFolder(ctx, chall.Name+" "+name+" ground truth",
		"Ground truth of the "+name+" phase of "+chall.Name+".", false, creator)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := req.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	phase := &model.Phase{
		ID:                  uuid.NewString(),
		ChallengeID:         chall.ID,
		Name:                name,
		Description:         strings.TrimSpace(req.Description),
		Instructions:        strings.TrimSpace(req.Instructions),
		CreatorID:           creator.ID,
		Public:              req.Public,
		Active:              req.Active,
		Ordinal:             ordinal,
		Type:                strings.TrimSpace(req.Type),
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		ParticipantGroupID:  participants.ID,
		GroundTruthFolderID: groundTruth.ID,

		HideScores:              req.HideScores,
		MatchSubmissions:        req.MatchSubmissions,
		EnableOrganization:      req.EnableOrganization,
		EnableOrganizationURL:   req.EnableOrganizationURL,
		EnableDocumentationURL:  req.EnableDocumentationURL,
		RequireOrganization:     req.RequireOrganization,
		RequireOrganizationURL:  req.RequireOrganizationURL,
		RequireDocumentationURL: req.RequireDocumentationURL,

		Metrics: map[string]model.Metric{},
		Meta:    meta,
		Access:  chall.Access.Clone(),
		Created: now,
		Updated: now,
	}
	phase.Access.SetUserAccess(creator.ID, access.Ptr(access.Admin))
	phase.Access.SetGroupAccess(participants.ID, access.Ptr(access.Read))

	// 3. Save, which synchronizes the (yet nonexistent) submissions folders
	if err := store.subs.SavePhase(ctx, phase); err != nil {
		return nil, err
	}

	logger.Info(global.WithPhaseID(ctx, phase.ID), "phase created",
		zap.String("name", phase.Name),
		zap.Int("ordinal", phase.Ordinal),
	)
	common.PhasesUDCounter().Add(ctx, 1)
	return phase, nil
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
	if err := common.RequireParams(r, "challengeId", "name"); err != nil {
		return err
	}
	chall, err := common.Load(ctx, store.db.Challenges, common.Param(r, "challengeId"), user, access.Write)
	if err != nil {
		return err
	}

	req := NewCreatePhaseRequest(r.FormValue("name"))
	req.Description = r.FormValue("description")
	req.Instructions = r.FormValue("instructions")
	req.Type = r.FormValue("type")
	req.ParticipantGroupID = common.Param(r, "participantGroupId")
	for name, dst := range req.flags() {
		if *dst, err = common.BoolParam(r, name, *dst); err != nil {
			return err
		}
	}
	if req.StartDate, err = common.DateParam(r, "startDate"); err != nil {
		return err
	}
	if req.EndDate, err = common.DateParam(r, "endDate"); err != nil {
		return err
	}
	if req.Meta, err = common.MetaParam(r); err != nil {
		return err
	}

	phase, err := store.CreatePhase(ctx, chall, req, user)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, phase)
}

// flags maps the boolean parameters to the request fields.
func (req *CreatePhaseRequest) flags() map[string]*bool {
	return map[string]*bool{
		"public":                  &req.Public,
		"active":                  &req.Active,
		"hideScores":              &req.HideScores,
		"matchSubmissions":        &req.MatchSubmissions,
		"enableOrganization":      &req.EnableOrganization,
		"enableOrganizationUrl":   &req.EnableOrganizationURL,
		"enableDocumentationUrl":  &req.EnableDocumentationURL,
		"requireOrganization":     &req.RequireOrganization,
		"requireOrganizationUrl":  &req.RequireOrganizationURL,
		"requireDocumentationUrl": &req.RequireDocumentationURL,
	}
}
