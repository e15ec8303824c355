package phase

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/distribution/reference"
	"github.com/go-chi/chi/v5"

	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/access"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/model"
)

// UpdatePhase validates then saves the updated phase.
func (store *Store) UpdatePhase(ctx context.Context, phase *model.Phase) (*model.Phase, error) {
	ctx = global.WithPhaseID(ctx, phase.ID)

	phase.Name = strings.TrimSpace(phase.Name)
	if phase.Name == "" {
		return nil, errs.MissingParam("name")
	}
	if err := validateDates(phase.StartDate, phase.EndDate); err != nil {
		return nil, err
	}
	if err := validateMetrics(phase.Metrics); err != nil {
		return nil, err
	}
	if err := validateScoreTask(phase.ScoreTask); err != nil {
		return nil, err
	}
	phase.Updated = time.Now().UTC()

	if err := store.subs.SavePhase(ctx, phase); err != nil {
		return nil, err
	}
	global.Log().Info(ctx, "phase updated")
	return phase, nil
}

func validateMetrics(metrics map[string]model.Metric) error {
	for name, m := range metrics {
		if strings.TrimSpace(name) == "" {
			return &errs.ErrValidation{Message: "Metric names must not be empty.", Field: "metrics"}
		}
		if math.IsNaN(m.Weight) || math.IsInf(m.Weight, 0) {
			return &errs.ErrValidation{Message: "Invalid weight of metric " + name + ".", Field: "metrics"}
		}
	}
	return nil
}

func validateScoreTask(task model.ScoreTask) error {
	if task.DockerImage == "" {
		return nil
	}
	if _, err := reference.ParseNormalizedNamed(task.DockerImage); err != nil {
		return &errs.ErrValidation{
			Message: "Invalid scoring Docker image: " + err.Error() + ".",
			Field:   "scoreTask",
		}
	}
	return nil
}

func (store *Store) HandleUpdate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	phase, err := common.Load(ctx, store.db.Phases, chi.URLParam(r, "id"), common.CurrentUser(ctx), access.Write)
	if err != nil {
		return err
	}

	for name, dst := range map[string]*string{
		"name":         &phase.Name,
		"description":  &phase.Description,
		"instructions": &phase.Instructions,
		"type":         &phase.Type,
	} {
		if v := common.OptParam(r, name); v != nil {
			*dst = *v
		}
	}
	for name, dst := range map[string]*bool{
		"public":                  &phase.Public,
		"active":                  &phase.Active,
		"hideScores":              &phase.HideScores,
		"matchSubmissions":        &phase.MatchSubmissions,
		"enableOrganization":      &phase.EnableOrganization,
		"enableOrganizationUrl":   &phase.EnableOrganizationURL,
		"enableDocumentationUrl":  &phase.EnableDocumentationURL,
		"requireOrganization":     &phase.RequireOrganization,
		"requireOrganizationUrl":  &phase.RequireOrganizationURL,
		"requireDocumentationUrl": &phase.RequireDocumentationURL,
	} {
		if *dst, err = common.BoolParam(r, name, *dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]**time.Time{
		"startDate": &phase.StartDate,
		"endDate":   &phase.EndDate,
	} {
		d, err := common.DateParam(r, name)
		if err != nil {
			return err
		}
		if d != nil {
			*dst = d
		}
	}

	var metrics map[string]model.Metric
	if ok, err := common.JSONParam(r, "metrics", &metrics); err != nil {
		return err
	} else if ok {
		phase.Metrics = metrics
	}
	var task model.ScoreTask
	if ok, err := common.JSONParam(r, "scoreTask", &task); err != nil {
		return err
	} else if ok {
		phase.ScoreTask = task
	}
	meta, err := common.MetaParam(r)
	if err != nil {
		return err
	}
	if meta != nil {
		phase.Meta = meta
	}

	phase, err = store.UpdatePhase(ctx, phase)
	if err != nil {
		return err
	}
	return common.JSON(w, http.StatusOK, phase)
}
