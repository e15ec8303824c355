package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ctfer-io/covalic/pkg/access"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/scoring"
)

// Params are the form parameters of a request. Empty values are not sent.
type Params map[string]string

func (p Params) Values() url.Values {
	vals := url.Values{}
	for k, v := range p {
		if v != "" {
			vals.Set(k, v)
		}
	}
	return vals
}

type AuthResult struct {
	Token   string          `json:"token"`
	Expires time.Time       `json:"expires"`
	User    *model.UserView `json:"user"`
}

// Login authenticates and makes the client use the resulting token.
func (c *Client) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	out := &AuthResult{}
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/user/authentication",
		params: Params{"login": login, "password": password}.Values(),
		out:    out,
	}); err != nil {
		return nil, err
	}
	c.token = out.Token
	return out, nil
}

func (c *Client) Register(ctx context.Context, params Params) (*model.UserView, error) {
	out := &model.UserView{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/user", params: params.Values(), out: out})
}

func (c *Client) Me(ctx context.Context) (*model.UserView, error) {
	out := &model.UserView{}
	return out, c.do(ctx, request{method: http.MethodGet, path: "/user/me", out: out})
}

func (c *Client) CreateFolder(ctx context.Context, params Params) (*model.Folder, error) {
	out := &model.Folder{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/folder", params: params.Values(), out: out})
}

func (c *Client) ListFiles(ctx context.Context, folderID string) ([]*model.File, error) {
	out := []*model.File{}
	return out, c.do(ctx, request{method: http.MethodGet, path: "/folder/" + folderID + "/file", out: &out})
}

// UploadFile stores the content under name in the folder, replacing
// any file of the same name.
func (c *Client) UploadFile(ctx context.Context, folderID, name string, content io.Reader) (*model.File, error) {
	out := &model.File{}
	return out, c.do(ctx, request{
		method: http.MethodPut,
		path:   "/folder/" + folderID + "/file",
		params: Params{"name": name}.Values(),
		body:   content,
		ctype:  "application/octet-stream",
		out:    out,
	})
}

// DownloadFolder returns the zip archive of the folder. Callers must
// close it.
func (c *Client) DownloadFolder(ctx context.Context, folderID string) (io.ReadCloser, error) {
	res, err := c.open(ctx, request{method: http.MethodGet, path: "/folder/" + folderID + "/download"})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Client) CreateChallenge(ctx context.Context, params Params) (*model.Challenge, error) {
	out := &model.Challenge{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/challenge", params: params.Values(), out: out})
}

func (c *Client) ListChallenges(ctx context.Context) ([]*model.Challenge, error) {
	out := []*model.Challenge{}
	return out, c.do(ctx, request{method: http.MethodGet, path: "/challenge", out: &out})
}

func (c *Client) DeleteChallenge(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/challenge/" + id})
}

func (c *Client) CreatePhase(ctx context.Context, params Params) (*model.Phase, error) {
	out := &model.Phase{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/challenge_phase", params: params.Values(), out: out})
}

func (c *Client) UpdatePhase(ctx context.Context, id string, params Params) (*model.Phase, error) {
	out := &model.Phase{}
	return out, c.do(ctx, request{method: http.MethodPut, path: "/challenge_phase/" + id, params: params.Values(), out: out})
}

func (c *Client) ListPhases(ctx context.Context, challengeID string) ([]*model.Phase, error) {
	out := []*model.Phase{}
	return out, c.do(ctx, request{
		method: http.MethodGet,
		path:   "/challenge_phase",
		params: Params{"challengeId": challengeID}.Values(),
		out:    &out,
	})
}

func (c *Client) SetPhaseAccess(ctx context.Context, id string, acl access.ACL, public bool) (*model.Phase, error) {
	body, err := jsonBody(map[string]any{"access": acl, "public": public})
	if err != nil {
		return nil, err
	}
	out := &model.Phase{}
	return out, c.do(ctx, request{
		method: http.MethodPut,
		path:   "/challenge_phase/" + id + "/access",
		body:   body,
		ctype:  "application/json",
		out:    out,
	})
}

// JoinPhase adds the current user to the phase participants.
func (c *Client) JoinPhase(ctx context.Context, id string) (*model.Phase, error) {
	out := &model.Phase{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/challenge_phase/" + id + "/participant", out: out})
}

func (c *Client) Leaderboard(ctx context.Context, phaseID string, limit, offset int) ([]scoring.Entry, error) {
	out := []scoring.Entry{}
	return out, c.do(ctx, request{
		method: http.MethodGet,
		path:   "/challenge_phase/" + phaseID + "/leaderboard",
		params: Params{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}.Values(),
		out: &out,
	})
}

func (c *Client) Submit(ctx context.Context, params Params) (*model.Submission, error) {
	out := &model.Submission{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/covalic_submission", params: params.Values(), out: out})
}

func (c *Client) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	out := &model.Submission{}
	return out, c.do(ctx, request{method: http.MethodGet, path: "/covalic_submission/" + id, out: out})
}

func (c *Client) ListSubmissions(ctx context.Context, params Params) ([]*model.Submission, error) {
	out := []*model.Submission{}
	return out, c.do(ctx, request{method: http.MethodGet, path: "/covalic_submission", params: params.Values(), out: &out})
}

func (c *Client) Rescore(ctx context.Context, id string) (*model.Submission, error) {
	out := &model.Submission{}
	return out, c.do(ctx, request{method: http.MethodPost, path: "/covalic_submission/" + id + "/rescore", out: out})
}

func (c *Client) ListJobs(ctx context.Context, status model.JobStatus, olderThan time.Duration) ([]*model.Job, error) {
	out := []*model.Job{}
	return out, c.do(ctx, request{
		method: http.MethodGet,
		path:   "/job",
		params: Params{
			"status":    status.String(),
			"olderThan": olderThan.String(),
		}.Values(),
		out: &out,
	})
}

// JobUpdate is a job status, progress and log change.
type JobUpdate struct {
	Status   *model.JobStatus
	Log      string
	Progress *model.JobProgress
}

func (u JobUpdate) Params() Params {
	p := Params{"log": u.Log}
	if u.Status != nil {
		p["status"] = u.Status.String()
	}
	if u.Progress != nil {
		p["progressTotal"] = strconv.FormatFloat(u.Progress.Total, 'f', -1, 64)
		p["progressCurrent"] = strconv.FormatFloat(u.Progress.Current, 'f', -1, 64)
		p["progressMessage"] = u.Progress.Message
	}
	return p
}

func (c *Client) UpdateJob(ctx context.Context, id string, update JobUpdate) (*model.Job, error) {
	out := &model.Job{}
	return out, c.do(ctx, request{method: http.MethodPut, path: "/job/" + id, params: update.Params().Values(), out: out})
}

type PurgeResult struct {
	Removed int `json:"removed"`
}

func (c *Client) PurgeExpiredTokens(ctx context.Context) (*PurgeResult, error) {
	out := &PurgeResult{}
	return out, c.do(ctx, request{method: http.MethodDelete, path: "/token/expired", out: out})
}
