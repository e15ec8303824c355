package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/model"
)

type CreateSubmissionRequest struct {
	Creator *model.User
	Phase   *model.Phase
	Folder  *model.Folder
	Job     *model.Job

	Title            string
	Created          *time.Time
	Organization     string
	OrganizationURL  string
	DocumentationURL string
	Approach         string
	Meta             map[string]any
}

// CreateSubmission saves a new unscored submission, then grants the
// phase admins read access on its folder.
func (store *Store) CreateSubmission(ctx context.Context, req *CreateSubmissionRequest) (*model.Submission, error) {
	sub := &model.Submission{
		ID:               uuid.NewString(),
		CreatorID:        req.Creator.ID,
		CreatorName:      req.Creator.Name(),
		PhaseID:          req.Phase.ID,
		FolderID:         req.Folder.ID,
		Title:            req.Title,
		Organization:     req.Organization,
		OrganizationURL:  req.OrganizationURL,
		DocumentationURL: req.DocumentationURL,
		Approach:         req.Approach,
		Meta:             req.Meta,
	}
	if req.Created != nil {
		sub.Created = *req.Created
	}
	if req.Job != nil {
		sub.JobID = req.Job.ID
	}
	ctx = global.WithSubmissionID(global.WithPhaseID(ctx, req.Phase.ID), sub.ID)

	if err := store.Save(ctx, sub); err != nil {
		return nil, err
	}
	if err := common.WithRWLock(ctx, common.PhaseKey(req.Phase.ID), func() error {
		return store.UpdateFolderAccess(ctx, req.Phase, []*model.Submission{sub})
	}); err != nil {
		return nil, err
	}

	global.Log().Info(ctx, "submission created",
		zap.String("folder_id", sub.FolderID),
		zap.String("user_id", sub.CreatorID),
	)
	common.SubmissionsUDCounter().Add(ctx, 1)
	return sub, nil
}
