package challenge

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
)

// DeleteChallenge removes the challenge along its phases and their
// submissions. Submitted folders are left to their owners.
func (store *Store) DeleteChallenge(ctx context.Context, chall *model.Challenge) error {
	logger := global.Log()
	ctx = global.WithChallengeID(ctx, chall.ID)

	phases, err := store.db.Phases.Find(ctx, func(p *model.Phase) bool {
		return p.ChallengeID == chall.ID
	})
	if err != nil {
		return err
	}
	for _, phase := range phases {
		ctx := global.WithPhaseID(ctx, phase.ID)

		subs, err := store.db.Submissions.Find(ctx, func(s *model.Submission) bool {
			return s.PhaseID == phase.ID
		})
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if err := store.db.Submissions.Remove(ctx, sub.ID); err != nil {
				return err
			}
			common.SubmissionsUDCounter().Add(ctx, -1)
		}
		if err := store.db.Phases.Remove(ctx, phase.ID); err != nil {
			return err
		}
		common.PhasesUDCounter().Add(ctx, -1)
		logger.Info(ctx, "phase deleted", zap.Int("submissions", len(subs)))
	}

	if err := store.db.Challenges.Remove(ctx, chall.ID); err != nil {
		return err
	}
	common.ChallengesUDCounter().Add(ctx, -1)
	logger.Info(ctx, "challenge deleted")
	return nil
}

func (store *Store) HandleDelete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	chall, err := common.Load(ctx, store.db.Challenges, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Admin)
	if err != nil {
		return err
	}
	if err := store.DeleteChallenge(ctx, chall); err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, map[string]string{"message": "Deleted challenge " + chall.Name + "."})
}
