package jobs

import (
	"strings"

	"github.com/ctfer-io/covalic/pkg/auth"
	"github.com/ctfer-io/covalic/pkg/model"
)

const (
	ScoreJobType    = "covalic_score"
	ScoreJobHandler = "worker_handler"

	InputSubmission  = "submission"
	InputGroundTruth = "groundtruth"
	OutputStdout     = "_stdout"
)

// DefaultScoreArgs are the container arguments of phases that define none.
var DefaultScoreArgs = []string{
	"--groundtruth=$input{groundtruth}",
	"--submission=$input{submission}",
}

// ScoreParams gathers what a scoring job needs to know.
type ScoreParams struct {
	APIURL string
	Token  string

	JobID               string
	Title               string
	SubmissionID        string
	SubmissionFolderID  string
	GroundTruthFolderID string

	Image string
	Args  []string
}

// ScoreKwargs builds the arguments of a scoring job: both folders are
// downloaded as zip archives, and the container stdout is posted back
// as the submission score.
func ScoreKwargs(p ScoreParams) *model.JobKwargs {
	api := strings.TrimSuffix(p.APIURL, "/")
	headers := map[string]string{
		auth.TokenHeader: p.Token,
	}
	args := p.Args
	if len(args) == 0 {
		args = DefaultScoreArgs
	}

	return &model.JobKwargs{
		Task: model.TaskSpec{
			Name:          p.Title,
			Mode:          "docker",
			DockerImage:   p.Image,
			ContainerArgs: append([]string{}, args...),
			Inputs: []model.TaskIO{
				{ID: InputSubmission, Type: "string", Format: "text", Target: "filepath", Filename: "submission.zip"},
				{ID: InputGroundTruth, Type: "string", Format: "text", Target: "filepath", Filename: "groundtruth.zip"},
			},
			Outputs: []model.TaskIO{
				{ID: OutputStdout, Type: "string", Format: "string"},
			},
		},
		Inputs: map[string]model.IOSpec{
			InputSubmission:  folderInput(api, p.SubmissionFolderID, headers),
			InputGroundTruth: folderInput(api, p.GroundTruthFolderID, headers),
		},
		Outputs: map[string]model.IOSpec{
			OutputStdout: {
				Mode:    "http",
				Method:  "POST",
				Format:  "string",
				URL:     api + "/covalic_submission/" + p.SubmissionID + "/score",
				Headers: headers,
			},
		},
		JobInfo: model.JobInfoSpec{
			Method:   "PUT",
			URL:      api + "/job/" + p.JobID,
			Headers:  headers,
			LogPrint: true,
		},
		Validate:    false,
		AutoConvert: false,
		Cleanup:     true,
	}
}

func folderInput(api, folderID string, headers map[string]string) model.IOSpec {
	return model.IOSpec{
		Mode:    "http",
		Method:  "GET",
		URL:     api + "/folder/" + folderID + "/download",
		Headers: headers,
	}
}
