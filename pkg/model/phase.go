package model

import (
	"time"

	"github.com/ctfer-io/covalic/pkg/access"
)

type Phase struct {
	ID                  string     `json:"id"`
	ChallengeID         string     `json:"challengeId"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	Instructions        string     `json:"instructions"`
	CreatorID           string     `json:"creatorId"`
	Public              bool       `json:"public"`
	Active              bool       `json:"active"`
	Ordinal             int        `json:"ordinal"`
	Type                string     `json:"type"`
	StartDate           *time.Time `json:"startDate,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	ParticipantGroupID  string     `json:"participantGroupId"`
	GroundTruthFolderID string     `json:"groundTruthFolderId"`

	HideScores       bool `json:"hideScores"`
	MatchSubmissions bool `json:"matchSubmissions"`

	EnableOrganization      bool `json:"enableOrganization"`
	EnableOrganizationURL   bool `json:"enableOrganizationUrl"`
	EnableDocumentationURL  bool `json:"enableDocumentationUrl"`
	RequireOrganization     bool `json:"requireOrganization"`
	RequireOrganizationURL  bool `json:"requireOrganizationUrl"`
	RequireDocumentationURL bool `json:"requireDocumentationUrl"`

	Metrics   map[string]Metric `json:"metrics,omitempty"`
	ScoreTask ScoreTask         `json:"scoreTask"`
	Meta      map[string]any    `json:"meta"`

	Access  access.ACL `json:"access"`
	Created time.Time  `json:"created"`
	Updated time.Time  `json:"updated"`
}

func (p *Phase) ACL() *access.ACL { return &p.Access }
func (p *Phase) IsPublic() bool   { return p.Public }

// Metric describes how a metric reported by the scoring task is
// presented and weighted into the overall score.
type Metric struct {
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// ScoreTask is the container run to score submissions of a phase.
type ScoreTask struct {
	DockerImage string   `json:"dockerImage,omitempty" yaml:"dockerImage,omitempty"`
	DockerArgs  []string `json:"dockerArgs,omitempty" yaml:"dockerArgs,omitempty"`
}
