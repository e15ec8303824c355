// Package worker runs scoring jobs: it fetches the submission and the
// ground truth, runs the scoring container on them, and posts the
// resulting score back to covalic.
package worker

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/client"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/model"
)

// MountPoint is where inputs are visible from within the container.
const MountPoint = "/mnt/covalic"

type Options struct {
	// Scratch is the directory where inputs are downloaded. It defaults
	// to the OS temporary directory.
	Scratch string
	Runner  Runner
	Client  *http.Client
}

type Worker struct {
	scratch string
	runner  Runner
	http    *http.Client
}

func New(opts Options) *Worker {
	w := &Worker{
		scratch: opts.Scratch,
		runner:  opts.Runner,
		http:    opts.Client,
	}
	if w.scratch == "" {
		w.scratch = os.TempDir()
	}
	if w.runner == nil {
		w.runner = &DockerRunner{}
	}
	if w.http == nil {
		w.http = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return w
}

// Run consumes the jobs of the source until the context is canceled.
func (w *Worker) Run(ctx context.Context, src jobs.Source) error {
	return src.Consume(ctx, w.Handle)
}

// Handle runs a single job. Any failure is reported on the job before
// being returned.
func (w *Worker) Handle(ctx context.Context, msg jobs.Message) error {
	ctx = global.WithJobID(ctx, msg.JobID)
	ctx, span := global.Tracer.Start(ctx, "worker.Handle", trace.WithAttributes(
		attribute.String("job.id", msg.JobID),
	))
	defer span.End()
	logger := global.Log()

	kw := msg.Kwargs
	if kw == nil {
		logger.Error(ctx, "job has no kwargs")
		return errors.New("job has no kwargs")
	}

	logger.Info(ctx, "running job", zap.String("image", kw.Task.DockerImage))
	if err := w.report(ctx, kw.JobInfo, model.JobRunning, "Fetching inputs\n"); err != nil {
		logger.Error(ctx, "reporting job start", zap.Error(err))
		return err
	}

	stdout, stderr, err := w.execute(ctx, kw)
	if err == nil {
		// Posting the output completes the job on the API side
		err = w.post(ctx, kw.Outputs[jobs.OutputStdout], stdout)
	}
	if err != nil {
		logger.Error(ctx, "job failed", zap.Error(err))
		span.RecordError(err)
		log := stderr + "\n" + err.Error() + "\n"
		if rerr := w.report(context.WithoutCancel(ctx), kw.JobInfo, model.JobError, log); rerr != nil {
			logger.Error(ctx, "reporting job failure", zap.Error(rerr))
		}
		return err
	}

	logger.Info(ctx, "job completed")
	return nil
}

func (w *Worker) execute(ctx context.Context, kw *model.JobKwargs) (stdout []byte, stderr string, err error) {
	dir, err := os.MkdirTemp(w.scratch, "covalic-job-")
	if err != nil {
		return nil, "", err
	}
	if kw.Cleanup {
		defer func() {
			if rerr := os.RemoveAll(dir); rerr != nil {
				global.Log().Warn(ctx, "removing job directory", zap.Error(rerr))
			}
		}()
	}

	repl := map[string]string{}
	for _, in := range kw.Task.Inputs {
		spec, ok := kw.Inputs[in.ID]
		if !ok {
			return nil, "", errors.Errorf("no binding for input %s", in.ID)
		}
		name := in.Filename
		if name == "" {
			name = in.ID
		}
		name = filepath.Base(name)
		if err := w.fetch(ctx, spec, filepath.Join(dir, name)); err != nil {
			return nil, "", errors.Wrapf(err, "fetching input %s", in.ID)
		}
		repl["$input{"+in.ID+"}"] = path.Join(MountPoint, name)
	}

	args := make([]string, len(kw.Task.ContainerArgs))
	for i, arg := range kw.Task.ContainerArgs {
		args[i] = substitute(arg, repl)
	}

	outBuf, errBuf := &bytes.Buffer{}, &bytes.Buffer{}
	err = w.runner.Run(ctx, RunSpec{
		Image: kw.Task.DockerImage,
		Args:  args,
		Dir:   dir,
		Mount: MountPoint,
	}, outBuf, errBuf)
	if err != nil {
		return nil, errBuf.String(), errors.Wrap(err, "running scoring container")
	}
	return outBuf.Bytes(), errBuf.String(), nil
}

// substitute replaces the $input{<id>} references of a container argument.
func substitute(arg string, repl map[string]string) string {
	for k, v := range repl {
		arg = strings.ReplaceAll(arg, k, v)
	}
	return arg
}

func (w *Worker) fetch(ctx context.Context, spec model.IOSpec, dst string) (err error) {
	res, err := w.exchange(ctx, spec, http.MethodGet, nil, "")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	_, err = io.Copy(f, res.Body)
	return err
}

func (w *Worker) post(ctx context.Context, spec model.IOSpec, body []byte) error {
	res, err := w.exchange(ctx, spec, http.MethodPost, bytes.NewReader(body), "application/json")
	if err != nil {
		return errors.Wrap(err, "posting output")
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return res.Body.Close()
}

func (w *Worker) report(ctx context.Context, info model.JobInfoSpec, status model.JobStatus, log string) error {
	update := client.JobUpdate{
		Status: &status,
		Log:    log,
	}
	spec := model.IOSpec{
		Method:  info.Method,
		URL:     info.URL + "?" + update.Params().Values().Encode(),
		Headers: info.Headers,
	}
	res, err := w.exchange(ctx, spec, http.MethodPut, nil, "")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return res.Body.Close()
}

func (w *Worker) exchange(ctx context.Context, spec model.IOSpec, method string, body io.Reader, ctype string) (*http.Response, error) {
	if spec.Method != "" {
		method = spec.Method
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}

	res, err := w.http.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
		return nil, errors.Errorf("%s %s: %d %s", method, req.URL.Path, res.StatusCode, strings.TrimSpace(string(b)))
	}
	return res, nil
}
