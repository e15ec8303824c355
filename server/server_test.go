package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/auth"
	"github.com/ctfer-io/covalic/pkg/fs"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/store"
)

const scorerID = "scorer"

func TestMain(m *testing.M) {
	global.Conf.Auth.Secret = "test-secret"
	global.Conf.Admin.Login = "admin"
	global.Conf.Admin.Email = "admin@example.com"
	global.Conf.Admin.Password = "adminpass"
	global.Conf.Scoring.UserID = scorerID
	os.Exit(m.Run())
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []*model.Job
}

func (f *fakeScheduler) Schedule(_ context.Context, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.jobs = append(f.jobs, j)
	return nil
}

func (f *fakeScheduler) Close() error { return nil }

// lastToken returns the token the last scheduled job posts its output with.
func (f *fakeScheduler) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.jobs)
	j := f.jobs[len(f.jobs)-1]
	require.NotNil(t, j.Kwargs)
	return j.Kwargs.Outputs[jobs.OutputStdout].Headers[auth.TokenHeader]
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeScheduler) {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	backend, err := store.OpenBackend(ctx, "fs", "", dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	assets, err := fs.NewAssets(dir)
	require.NoError(t, err)
	db := store.New(backend, assets)
	require.NoError(t, db.Users.Save(ctx, &model.User{ID: scorerID, Login: scorerID, FirstName: "Sco", LastName: "Rer"}))

	sched := &fakeScheduler{}
	srv := NewServer(Options{
		DB:        db,
		Scheduler: sched,
	})
	require.NoError(t, srv.Bootstrap(ctx))

	ts := httptest.NewServer(srv.Handler(ctx))
	t.Cleanup(ts.Close)
	return ts, sched
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, params url.Values, dst any) int {
	t.Helper()
	return send(t, ts, method, path, token, "application/x-www-form-urlencoded", params.Encode(), dst)
}

func send(t *testing.T, ts *httptest.Server, method, path, token, contentType, body string, dst any) int {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	if dst != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(dst))
	}
	return res.StatusCode
}

func login(t *testing.T, ts *httptest.Server, login, password string) string {
	t.Helper()

	var res struct {
		Token string `json:"token"`
	}
	code := call(t, ts, http.MethodPost, "/api/v1/user/authentication", "", url.Values{
		"login":    {login},
		"password": {password},
	}, &res)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func Test_F_Healthcheck(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	res, err := ts.Client().Get(ts.URL + "/healthcheck")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func Test_F_InvalidToken(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	var body errorBody
	code := call(t, ts, http.MethodGet, "/api/v1/user/me", "not-a-token", nil, &body)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "access", body.Type)
}

func Test_F_ChallengeAndPhase(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	// Register then log in as a plain user
	code := call(t, ts, http.MethodPost, "/api/v1/user", "", url.Values{
		"login":     {"jdoe"},
		"email":     {"jdoe@example.com"},
		"firstName": {"John"},
		"lastName":  {"Doe"},
		"password":  {"password123"},
	}, nil)
	require.Equal(t, http.StatusOK, code)
	tok := login(t, ts, "jdoe", "password123")

	var chall struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	code = call(t, ts, http.MethodPost, "/api/v1/challenge", tok, url.Values{
		"name": {"Liver segmentation"},
	}, &chall)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Liver segmentation", chall.Name)

	var phase struct {
		ID                 string `json:"id"`
		ChallengeID        string `json:"challengeId"`
		ParticipantGroupID string `json:"participantGroupId"`
	}
	code = call(t, ts, http.MethodPost, "/api/v1/challenge_phase", tok, url.Values{
		"challengeId": {chall.ID},
		"name":        {"Training"},
	}, &phase)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, chall.ID, phase.ChallengeID)
	assert.NotEmpty(t, phase.ParticipantGroupID)

	// Anonymous users cannot see the private challenge
	var body errorBody
	code = call(t, ts, http.MethodGet, "/api/v1/challenge/"+chall.ID, "", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Unknown ids are rejected
	code = call(t, ts, http.MethodGet, "/api/v1/challenge/unknown", tok, nil, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid challenge id (unknown).", body.Message)

	// Missing phase id on submission
	code = call(t, ts, http.MethodPost, "/api/v1/covalic_submission", tok, url.Values{
		"folderId": {"f"},
	}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "phaseId", body.Field)
}

func Test_F_AdminBootstrap(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t)

	tok := login(t, ts, "admin", "adminpass")

	var me struct {
		Login string `json:"login"`
		Admin bool   `json:"admin"`
	}
	code := call(t, ts, http.MethodGet, "/api/v1/user/me", tok, nil, &me)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin", me.Login)
	assert.True(t, me.Admin)

	// Admins may list jobs
	var js []map[string]any
	code = call(t, ts, http.MethodGet, "/api/v1/job", tok, nil, &js)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, js)
}
