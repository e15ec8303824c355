package worker_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/worker"
)

type fakeRunner struct {
	spec   worker.RunSpec
	files  []string
	stdout string
	err    error
}

func (r *fakeRunner) Run(_ context.Context, spec worker.RunSpec, stdout, stderr io.Writer) error {
	r.spec = spec
	entries, _ := os.ReadDir(spec.Dir)
	for _, e := range entries {
		r.files = append(r.files, e.Name())
	}
	if r.err != nil {
		_, _ = io.WriteString(stderr, "segfault")
		return r.err
	}
	_, _ = io.WriteString(stdout, r.stdout)
	return nil
}

type api struct {
	mu       sync.Mutex
	statuses []string
	score    string
}

func (a *api) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()

		assert.Equal(t, "tok", r.Header.Get("Covalic-Token"))
		switch r.URL.Path {
		case "/folder/sf/download":
			_, _ = io.WriteString(w, "submission-zip")
		case "/folder/gt/download":
			_, _ = io.WriteString(w, "groundtruth-zip")
		case "/covalic_submission/sub/score":
			b, _ := io.ReadAll(r.Body)
			a.score = string(b)
		case "/job/job":
			a.statuses = append(a.statuses, r.URL.Query().Get("status"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func Test_U_Handle(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		RunErr           error
		ExpectErr        bool
		ExpectedStatuses []string
		ExpectedScore    string
	}{
		"scored": {
			RunErr:           nil,
			ExpectErr:        false,
			ExpectedStatuses: []string{"running"},
			ExpectedScore:    `[{"dataset":"d","metrics":[]}]`,
		},
		"container-failure": {
			RunErr:           errors.New("exit status 139"),
			ExpectErr:        true,
			ExpectedStatuses: []string{"running", "error"},
			ExpectedScore:    "",
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			a := &api{}
			srv := httptest.NewServer(a.handler(t))
			defer srv.Close()

			runner := &fakeRunner{
				stdout: `[{"dataset":"d","metrics":[]}]`,
				err:    tt.RunErr,
			}
			scratch := t.TempDir()
			w := worker.New(worker.Options{
				Scratch: scratch,
				Runner:  runner,
				Client:  srv.Client(),
			})

			kw := jobs.ScoreKwargs(jobs.ScoreParams{
				APIURL:              srv.URL,
				Token:               "tok",
				JobID:               "job",
				Title:               "test",
				SubmissionID:        "sub",
				SubmissionFolderID:  "sf",
				GroundTruthFolderID: "gt",
				Image:               "covalic-metrics",
			})
			err := w.Handle(context.Background(), jobs.Message{JobID: "job", Kwargs: kw})
			if tt.ExpectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.ExpectedStatuses, a.statuses)
			assert.Equal(t, tt.ExpectedScore, a.score)
			assert.ElementsMatch(t, []string{"submission.zip", "groundtruth.zip"}, runner.files)
			assert.Equal(t, []string{
				"--groundtruth=" + filepath.ToSlash(worker.MountPoint+"/groundtruth.zip"),
				"--submission=" + filepath.ToSlash(worker.MountPoint+"/submission.zip"),
			}, runner.spec.Args)

			// Cleanup removed the job directory
			entries, err := os.ReadDir(scratch)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func Test_U_HandleFetchFailure(t *testing.T) {
	t.Parallel()

	a := &api{}
	srv := httptest.NewServer(a.handler(t))
	defer srv.Close()

	runner := &fakeRunner{}
	w := worker.New(worker.Options{
		Scratch: t.TempDir(),
		Runner:  runner,
		Client:  srv.Client(),
	})

	kw := jobs.ScoreKwargs(jobs.ScoreParams{
		APIURL:              srv.URL,
		Token:               "tok",
		JobID:               "job",
		SubmissionID:        "sub",
		SubmissionFolderID:  "missing",
		GroundTruthFolderID: "gt",
	})
	err := w.Handle(context.Background(), jobs.Message{JobID: "job", Kwargs: kw})
	assert.Error(t, err)
	assert.Equal(t, []string{"running", "error"}, a.statuses)
	assert.Empty(t, runner.spec.Image)
}
