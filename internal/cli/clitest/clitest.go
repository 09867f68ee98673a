// Package clitest builds command contexts backed by a temporary SQLite store.
package clitest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage/sqlite"
)

// Now is the fixed clock of every context, a Wednesday morning.
var Now = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Fixture is a ready-to-run command context.
type Fixture struct {
	Ctx   *cli.Context
	Out   *bytes.Buffer
	Clock *Clock
	Store *sqlite.Store
}

// New creates a context with an initialized store in a temp config dir.
func New(t *testing.T) *Fixture {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Timezone = "UTC"

	store := sqlite.NewStore(cfg.Database)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	clock := &Clock{T: Now}
	out := &bytes.Buffer{}
	return &Fixture{
		Ctx: &cli.Context{
			Store:  store,
			Config: cfg,
			Now:    clock.Now,
			Out:    out,
		},
		Out:   out,
		Clock: clock,
		Store: store,
	}
}

// AddUser stores an account with a throwaway password.
func (f *Fixture) AddUser(t *testing.T, email string) models.User {
	t.Helper()
	user, err := auth.NewUser(email, "correct horse battery", "", f.Clock.T)
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	if err := f.Store.AddUser(context.Background(), user); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
	return user
}

// Output returns and clears everything printed so far.
func (f *Fixture) Output() string {
	s := f.Out.String()
	f.Out.Reset()
	return s
}

// FakeLLM points the config at a chat-completions endpoint that answers with
// replies in order, repeating the last one. It returns a counter of requests.
func (f *Fixture) FakeLLM(t *testing.T, replies ...string) func() int {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reply := replies[min(calls, len(replies)-1)]
		calls++
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	f.Ctx.Config.LLM.BaseURL = srv.URL
	f.Ctx.Config.LLM.APIKey = "test-key"
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}
}
