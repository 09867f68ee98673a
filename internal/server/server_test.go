package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/coach"
	"github.com/julianstephens/studylit/internal/config"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/ratelimit"
	"github.com/julianstephens/studylit/internal/report"
	"github.com/julianstephens/studylit/internal/storage/sqlite"
)

var testNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

type fakeLLM struct {
	reply string
	json  string
	err   error
}

func (f *fakeLLM) Chat(context.Context, []llm.Message) (string, error) {
	return f.reply, f.err
}

func (f *fakeLLM) ChatJSON(_ context.Context, _ []llm.Message, out any) error {
	if f.err != nil {
		return f.err
	}
	return llm.DecodeJSON(f.json, out)
}

type testEnv struct {
	handler http.Handler
	store   *sqlite.Store
	llm     *fakeLLM
	clock   *time.Time
}

type envOption func(cfg *config.Config, d *Deps)

func withoutCoach() envOption {
	return func(_ *config.Config, d *Deps) { d.Coach = nil }
}

func withTimezone(name string) envOption {
	return func(cfg *config.Config, _ *Deps) { cfg.Timezone = name }
}

func withPolicy(name string, limit int) envOption {
	return func(cfg *config.Config, _ *Deps) {
		cfg.RateLimit.Policies[name] = config.PolicyConfig{Limit: limit, Window: time.Minute}
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	env := &testEnv{store: store, llm: &fakeLLM{reply: "Keep going."}}
	now := testNow
	env.clock = &now
	clock := func() time.Time { return *env.clock }

	cfg := config.Default(dir)
	cfg.Timezone = "UTC"
	authSvc, err := auth.NewService(store, "test-secret", time.Hour)
	require.NoError(t, err)
	authSvc.WithClock(clock)

	d := Deps{
		Store:   store,
		Auth:    authSvc,
		Coach:   coach.New(store, env.llm, coach.Options{Retention: 10}).WithClock(clock),
		Reports: report.NewService(store, env.llm, notifier.New("", "")).WithClock(clock),
		Limiter: ratelimit.NewMemoryLimiter().WithClock(clock),
		Config:  cfg,
		Now:     clock,
	}
	for _, opt := range opts {
		opt(cfg, &d)
	}
	env.handler = New(d).Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "correct horse", "displayName": "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	env.store.Close()
	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "Ana@Example.com")

	t.Run("me", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			User struct {
				Email        string `json:"email"`
				PasswordHash string `json:"passwordHash"`
			} `json:"user"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, "ana@example.com", resp.User.Email)
		assert.Empty(t, resp.User.PasswordHash)
	})

	t.Run("login", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "correct horse"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{name: "wrong password", method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "ana@example.com", "password": "nope nope"}, want: http.StatusUnauthorized},
		{name: "unknown email", method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "bo@example.com", "password": "correct horse"}, want: http.StatusUnauthorized},
		{name: "duplicate signup", method: http.MethodPost, path: "/api/auth/signup", body: map[string]string{"email": "ana@example.com", "password": "correct horse"}, want: http.StatusConflict},
		{name: "weak password", method: http.MethodPost, path: "/api/auth/signup", body: map[string]string{"email": "bo@example.com", "password": "short"}, want: http.StatusBadRequest},
		{name: "invalid email", method: http.MethodPost, path: "/api/auth/signup", body: map[string]string{"email": "not-an-email", "password": "correct horse"}, want: http.StatusBadRequest},
		{name: "missing token", method: http.MethodGet, path: "/api/me", want: http.StatusUnauthorized},
		{name: "forged token", method: http.MethodGet, path: "/api/me", token: "abc.def.ghi", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, errorBody(t, rec))
		})
	}

	t.Run("expired token", func(t *testing.T) {
		*env.clock = testNow.Add(2 * time.Hour)
		defer func() { *env.clock = testNow }()
		rec := env.do(t, http.MethodGet, "/api/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.New("disk on fire")))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(&ratelimit.LimitedError{RetryAfter: time.Second}))
	assert.Equal(t, http.StatusConflict, statusFor(notifier.ErrNotConfigured))
	assert.Equal(t, apperrors.TryAgain, apperrors.UserMessage(errors.New("disk on fire")))
}
