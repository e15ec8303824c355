package model

import (
	"time"
)

type Submission struct {
	ID               string         `json:"id"`
	CreatorID        string         `json:"creatorId"`
	CreatorName      string         `json:"creatorName"`
	PhaseID          string         `json:"phaseId"`
	FolderID         string         `json:"folderId"`
	Created          time.Time      `json:"created"`
	Score            Score          `json:"score"`
	Title            string         `json:"title"`
	Latest           bool           `json:"latest"`
	OverallScore     *float64       `json:"overallScore,omitempty"`
	ScoredAt         *time.Time     `json:"scored,omitempty"`
	JobID            string         `json:"jobId,omitempty"`
	Organization     string         `json:"organization,omitempty"`
	OrganizationURL  string         `json:"organizationUrl,omitempty"`
	DocumentationURL string         `json:"documentationUrl,omitempty"`
	Approach         string         `json:"approach,omitempty"`
	Meta             map[string]any `json:"meta"`
}

// Scored tells whether an overall score has been computed.
func (s *Submission) Scored() bool {
	return s.OverallScore != nil
}

// HideScores returns a copy of the submission without any score.
func (s *Submission) HideScores() *Submission {
	cp := *s
	cp.Score = nil
	cp.OverallScore = nil
	return &cp
}
