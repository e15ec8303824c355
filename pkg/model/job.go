package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type JobStatus int

const (
	JobInactive JobStatus = iota
	JobQueued
	JobRunning
	JobSuccess
	JobError
	JobCanceled
)

var jobStatusNames = []string{"inactive", "queued", "running", "success", "error", "canceled"}

func (s JobStatus) String() string {
	if s < 0 || int(s) >= len(jobStatusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return jobStatusNames[s]
}

// Terminal tells whether no further transition is expected.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError || s == JobCanceled
}

// ParseJobStatus reads a status from its name or numeric value.
func ParseJobStatus(in string) (JobStatus, error) {
	in = strings.ToLower(strings.TrimSpace(in))
	for i, name := range jobStatusNames {
		if in == name || in == strconv.Itoa(i) {
			return JobStatus(i), nil
		}
	}
	return 0, fmt.Errorf("invalid job status %q", in)
}

type Job struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	Type                string       `json:"type"`
	Handler             string       `json:"handler"`
	UserID              string       `json:"userId"`
	Status              JobStatus    `json:"status"`
	Progress            *JobProgress `json:"progress,omitempty"`
	Log                 []string     `json:"log"`
	Kwargs              *JobKwargs   `json:"kwargs,omitempty"`
	CovalicSubmissionID string       `json:"covalicSubmissionId,omitempty"`
	Rescoring           bool         `json:"rescoring,omitempty"`
	Created             time.Time    `json:"created"`
	Updated             time.Time    `json:"updated"`
}

type JobProgress struct {
	Total   float64 `json:"total"`
	Current float64 `json:"current"`
	Message string  `json:"message,omitempty"`
}

// JobKwargs is everything a worker needs to run a scoring task: the
// container to run, where to fetch its inputs, where to send its
// outputs and where to report the job progress.
type JobKwargs struct {
	Task        TaskSpec          `json:"task"`
	Inputs      map[string]IOSpec `json:"inputs"`
	Outputs     map[string]IOSpec `json:"outputs"`
	JobInfo     JobInfoSpec       `json:"jobInfo"`
	Validate    bool              `json:"validate"`
	AutoConvert bool              `json:"auto_convert"`
	Cleanup     bool              `json:"cleanup"`
}

type TaskSpec struct {
	Name          string   `json:"name"`
	Mode          string   `json:"mode"`
	DockerImage   string   `json:"docker_image"`
	ContainerArgs []string `json:"container_args"`
	Inputs        []TaskIO `json:"inputs"`
	Outputs       []TaskIO `json:"outputs"`
}

type TaskIO struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Format   string `json:"format"`
	Target   string `json:"target,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// IOSpec binds a task input or output to an HTTP exchange.
type IOSpec struct {
	Mode    string            `json:"mode"`
	Method  string            `json:"method,omitempty"`
	Format  string            `json:"format,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type JobInfoSpec struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers,omitempty"`
	LogPrint bool              `json:"logPrint"`
}
