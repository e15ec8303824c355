package submission

import (
	"context"
	"net/http"
	"path"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Submit creates the submission then schedules its scoring. When the
// scoring could not be scheduled, the submission is removed.
func (store *Store) Submit(ctx context.Context, req *CreateSubmissionRequest, apiURL string) (*model.Submission, error) {
	sub, err := store.CreateSubmission(ctx, req)
	if err != nil {
		return nil, err
	}

	scored, err := store.ScoreSubmission(ctx, sub, apiURL)
	if err != nil {
		ctx := global.WithSubmissionID(ctx, sub.ID)
		global.Log().Error(ctx, "scoring submission, removing it", zap.Error(err))

		if rerr := store.db.Submissions.Remove(ctx, sub.ID); rerr != nil {
			return nil, multierr.Combine(err, rerr)
		}
		common.SubmissionsUDCounter().Add(ctx, -1)
		return nil, err
	}
	return scored, nil
}

func (store *Store) HandlePost(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := common.RequireUser(ctx)
	if err != nil {
		return err
	}
	if err := common.RequireParams(r, "phaseId", "folderId"); err != nil {
		return err
	}
	phase, err := common.Load(ctx, store.db.Phases, common.Param(r, "phaseId"), user, access.Read)
	if err != nil {
		return err
	}
	folder, err := common.Load(ctx, store.db.Folders, common.Param(r, "folderId"), user, access.Admin)
	if err != nil {
		return err
	}
	ctx = global.WithPhaseID(ctx, phase.ID)

	if !phase.Active && !user.Admin {
		return errs.NewValidation("You may not submit to this phase because it is not currently active.")
	}
	if err := common.RequireParams(r, "title"); err != nil {
		return err
	}

	// Only participants, or users with write access, may submit
	if !user.InGroup(phase.ParticipantGroupID) {
		if err := common.RequireAccess(phase, "phase", phase.ID, user, access.Write); err != nil {
			return err
		}
	}

	req := &CreateSubmissionRequest{
		Phase:    phase,
		Folder:   folder,
		Title:    common.Param(r, "title"),
		Approach: common.Param(r, "approach"),
	}
	if req.Organization, err = conditionalParam(r, "organization", phase.EnableOrganization, phase.RequireOrganization); err != nil {
		return err
	}
	if req.OrganizationURL, err = conditionalParam(r, "organizationUrl", phase.EnableOrganizationURL, phase.RequireOrganizationURL); err != nil {
		return err
	}
	if req.DocumentationURL, err = conditionalParam(r, "documentationUrl", phase.EnableDocumentationURL, phase.RequireDocumentationURL); err != nil {
		return err
	}
	if req.Meta, err = common.MetaParam(r); err != nil {
		return err
	}

	// Site admins may override the creation date and submit on behalf of others
	if req.Created, err = common.DateParam(r, "date"); err != nil {
		return err
	}
	if req.Created != nil {
		if err := common.RequireAdmin(user, "Administrator access required to override the submission creation date."); err != nil {
			return err
		}
	}
	req.Creator = user
	if userID := common.Param(r, "userId"); userID != "" {
		if err := common.RequireAdmin(user, "Administrator access required to submit to this phase on behalf of another user."); err != nil {
			return err
		}
		if req.Creator, err = store.db.Users.Load(ctx, userID); err != nil {
			return err
		}
	}

	if phase.MatchSubmissions {
		if err := store.matchGroundTruth(ctx, phase, folder); err != nil {
			return err
		}
	}

	sub, err := store.Submit(ctx, req, common.APIURL(r))
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, Present(sub, phase, user))
}

// conditionalParam reads a submission field the phase may enable and
// require. Disabled fields are ignored.
func conditionalParam(r *http.Request, name string, enabled, required bool) (string, error) {
	if !enabled {
		return "", nil
	}
	if required {
		if err := common.RequireParams(r, name); err != nil {
			return "", err
		}
	}
	return common.Param(r, name), nil
}

// matchGroundTruth checks the submitted files base names match the
// ground truth ones. An empty ground truth matches anything.
func (store *Store) matchGroundTruth(ctx context.Context, phase *model.Phase, folder *model.Folder) error {
	truth, err := store.baseNames(ctx, phase.GroundTruthFolderID)
	if err != nil {
		return err
	}
	if len(truth) == 0 {
		return nil
	}
	submitted, err := store.baseNames(ctx, folder.ID)
	if err != nil {
		return err
	}

	missing, unexpected := diff(truth, submitted), diff(submitted, truth)
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	msg := "Submission filenames must match ground truth filenames."
	if len(missing) != 0 {
		msg += " Missing: " + strings.Join(missing, ", ") + "."
	}
	if len(unexpected) != 0 {
		msg += " Unexpected: " + strings.Join(unexpected, ", ") + "."
	}
	return &errs.ErrValidation{Message: msg, Field: "folderId"}
}

func (store *Store) baseNames(ctx context.Context, folderID string) (map[string]struct{}, error) {
	files, err := store.db.Files.Find(ctx, func(f *model.File) bool {
		return f.FolderID == folderID
	})
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(files))
	for _, f := range files {
		names[BaseName(f.Name)] = struct{}{}
	}
	return names, nil
}

// BaseName strips every extension of the file name, so "case1.nii.gz"
// and "case1.mha" compare equal.
func BaseName(name string) string {
	name = path.Base(name)
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func diff(a, b map[string]struct{}) []string {
	out := []string{}
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
