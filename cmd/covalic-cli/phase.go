package main

import (
	"io"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ctfer-io/covalic/client"
	"github.com/ctfer-io/covalic/pkg/model"
)

// PhaseDefinition is the YAML description of a phase, as read by
// `covalic-cli phase create --file`.
type PhaseDefinition struct {
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description,omitempty"`
	Instructions string     `yaml:"instructions,omitempty"`
	Type         string     `yaml:"type,omitempty"`
	StartDate    *time.Time `yaml:"startDate,omitempty"`
	EndDate      *time.Time `yaml:"endDate,omitempty"`

	Flags map[string]bool `yaml:"flags,omitempty"`

	Metrics   map[string]model.Metric `yaml:"metrics,omitempty"`
	ScoreTask *model.ScoreTask        `yaml:"scoreTask,omitempty"`
	Meta      map[string]any          `yaml:"meta,omitempty"`
}

var phaseFlags = map[string]struct{}{
	"public":                  {},
	"active":                  {},
	"hideScores":              {},
	"matchSubmissions":        {},
	"enableOrganization":      {},
	"enableOrganizationUrl":   {},
	"enableDocumentationUrl":  {},
	"requireOrganization":     {},
	"requireOrganizationUrl":  {},
	"requireDocumentationUrl": {},
}

func readPhaseDefinition(r io.Reader) (*PhaseDefinition, error) {
	def := &PhaseDefinition{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil {
		return nil, errors.Wrap(err, "decoding phase definition")
	}
	if def.Name == "" {
		return nil, errors.New("phase definition has no name")
	}
	for name := range def.Flags {
		if _, ok := phaseFlags[name]; !ok {
			return nil, errors.Errorf("unknown phase flag %q", name)
		}
	}
	return def, nil
}

// createParams returns the parameters of the phase creation.
func (def *PhaseDefinition) createParams(challengeID string) (client.Params, error) {
	params := client.Params{
		"challengeId":  challengeID,
		"name":         def.Name,
		"description":  def.Description,
		"instructions": def.Instructions,
		"type":         def.Type,
	}
	if def.StartDate != nil {
		params["startDate"] = def.StartDate.UTC().Format(time.RFC3339Nano)
	}
	if def.EndDate != nil {
		params["endDate"] = def.EndDate.UTC().Format(time.RFC3339Nano)
	}
	for name, v := range def.Flags {
		params[name] = strconv.FormatBool(v)
	}
	if def.Meta != nil {
		b, err := json.Marshal(def.Meta)
		if err != nil {
			return nil, err
		}
		params["meta"] = string(b)
	}
	return params, nil
}

// updateParams returns the scoring parameters, only settable once the
// phase exists. Nil when there is nothing to set.
func (def *PhaseDefinition) updateParams() (client.Params, error) {
	params := client.Params{}
	if def.Metrics != nil {
		b, err := json.Marshal(def.Metrics)
		if err != nil {
			return nil, err
		}
		params["metrics"] = string(b)
	}
	if def.ScoreTask != nil {
		b, err := json.Marshal(def.ScoreTask)
		if err != nil {
			return nil, err
		}
		params["scoreTask"] = string(b)
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}
