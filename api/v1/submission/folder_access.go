package submission

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// PhaseAdmins returns the users holding at least WRITE on the phase.
func PhaseAdmins(phase *model.Phase) []string {
	entries := phase.Access.FullAccessList(access.Write)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// UpdateFolderAccess gives the phase admins, and only them, read access
// on the submissions folders. The folders creators keep their access.
func (store *Store) UpdateFolderAccess(ctx context.Context, phase *model.Phase, subs []*model.Submission) error {
	if subs == nil {
		return errs.NewValidation("A list of submissions is required.")
	}

	admins := PhaseAdmins(phase)
	isAdmin := make(map[string]struct{}, len(admins))
	for _, id := range admins {
		isAdmin[id] = struct{}{}
	}

	for _, sub := range subs {
		folder, err := store.db.Folders.Load(ctx, sub.FolderID)
		if err != nil {
			if _, ok := err.(*errs.ErrNotFound); ok {
				continue
			}
			return err
		}

		changed := false
		for _, e := range append([]access.Entry{}, folder.Access.Users...) {
			if _, ok := isAdmin[e.ID]; ok || e.ID == folder.CreatorID {
				continue
			}
			changed = folder.Access.SetUserAccess(e.ID, nil) || changed
		}
		for _, id := range admins {
			if id == folder.CreatorID {
				continue
			}
			changed = folder.Access.SetUserAccess(id, access.Ptr(access.Read)) || changed
		}

		if changed {
			folder.Updated = time.Now().UTC()
			if err := store.db.Folders.Save(ctx, folder); err != nil {
				return err
			}
			global.Log().Debug(ctx, "submission folder access updated",
				zap.String("folder_id", folder.ID),
			)
		}
	}
	return nil
}

// SavePhase saves the phase then synchronizes the access of all its
// submissions folders.
func (store *Store) SavePhase(ctx context.Context, phase *model.Phase) error {
	ctx = global.WithPhaseID(ctx, phase.ID)
	return common.WithRWLock(ctx, common.PhaseKey(phase.ID), func() error {
		if err := store.db.Phases.Save(ctx, phase); err != nil {
			return err
		}
		subs, err := store.db.Submissions.Find(ctx, func(s *model.Submission) bool {
			return s.PhaseID == phase.ID
		})
		if err != nil {
			return err
		}
		return store.UpdateFolderAccess(ctx, phase, subs)
	})
}
