package submission

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// Present strips the scores of the submission when the phase hides them
// from the user.
func Present(sub *model.Submission, phase *model.Phase, user *model.User) *model.Submission {
	if phase.HideScores && !access.HasAccess(phase, user, access.Write) {
		return sub.HideScores()
	}
	return sub
}

type Query struct {
	PhaseID  string
	UserID   string
	Approach *string
	// LatestOnly keeps the submissions flagged latest.
	LatestOnly bool

	Sort   string
	Desc   bool
	Limit  int
	Offset int
}

var sorts = map[string]func(a, b *model.Submission) bool{
	"created": func(a, b *model.Submission) bool {
		return a.Created.Before(b.Created)
	},
	"title": func(a, b *model.Submission) bool {
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	},
	"overallScore": func(a, b *model.Submission) bool {
		return overall(a) < overall(b)
	},
}

func overall(s *model.Submission) float64 {
	if s.OverallScore == nil {
		return -1
	}
	return *s.OverallScore
}

// QuerySubmissions lists the submissions of a phase.
func (store *Store) QuerySubmissions(ctx context.Context, q Query) ([]*model.Submission, error) {
	less, ok := sorts[q.Sort]
	if !ok {
		return nil, &errs.ErrValidation{Message: "Invalid sort field: " + q.Sort + ".", Field: "sort"}
	}
	if q.Desc {
		asc := less
		less = func(a, b *model.Submission) bool { return asc(b, a) }
	}

	subs, err := store.db.Submissions.Find(ctx, func(s *model.Submission) bool {
		switch {
		case s.PhaseID != q.PhaseID,
			q.UserID != "" && s.CreatorID != q.UserID,
			q.Approach != nil && s.Approach != *q.Approach,
			q.LatestOnly && !s.Latest:
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return common.Page(subs, less, q.Offset, q.Limit), nil
}

func (store *Store) HandleQuery(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user := common.CurrentUser(ctx)

	if err := common.RequireParams(r, "phaseId"); err != nil {
		return err
	}
	phase, err := common.Load(ctx, store.db.Phases, common.Param(r, "phaseId"), user, access.Read)
	if err != nil {
		return err
	}

	q := Query{
		PhaseID:  phase.ID,
		UserID:   common.Param(r, "userId"),
		Approach: common.OptParam(r, "approach"),
		Sort:     common.Param(r, "sort"),
		Desc:     true,
	}
	if q.Sort == "" {
		q.Sort = "overallScore"
	}
	if q.Approach != nil && *q.Approach == "default" {
		*q.Approach = ""
	}
	if q.LatestOnly, err = common.BoolParam(r, "latest", true); err != nil {
		return err
	}
	if v := common.Param(r, "sortdir"); v == "1" || strings.EqualFold(v, "asc") {
		q.Desc = false
	}
	if q.Limit, q.Offset, err = common.PageParams(r); err != nil {
		return err
	}

	subs, err := store.QuerySubmissions(ctx, q)
	if err != nil {
		return err
	}
	out := make([]*model.Submission, 0, len(subs))
	for _, sub := range subs {
		out = append(out, Present(sub, phase, user))
	}
	return common.JSON(w, http.StatusOK, out)
}

// HandleRetrieve returns the submission to its creator, or to the users
// able to read its phase.
func (store *Store) HandleRetrieve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user := common.CurrentUser(ctx)

	sub, err := store.db.Submissions.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	phase, err := store.db.Phases.Load(ctx, sub.PhaseID)
	if err != nil {
		return err
	}
	if user == nil || user.ID != sub.CreatorID {
		if err := common.RequireAccess(phase, "phase", phase.ID, user, access.Read); err != nil {
			return err
		}
	}
	return common.JSON(w, http.StatusOK, Present(sub, phase, user))
}
