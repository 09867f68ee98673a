package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/studylit/internal/backup"
	"github.com/julianstephens/studylit/internal/coach"
	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/report"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/storage/postgres"
	"github.com/julianstephens/studylit/internal/storage/sqlite"
)

// ErrNoUser is returned when a user-scoped command cannot pick an account.
var ErrNoUser = errors.New("no user found, create one with 'studylit user add'")

type Context struct {
	Store  storage.Provider
	Config *config.Config
	// User is the --user email. Empty selects the only account, if there is one.
	User string
	Now  func() time.Time
	Out  io.Writer
}

// OpenStore returns the provider for a SQLite path or a postgres:// URL.
// Passwords embedded in a connection URL are rejected.
func OpenStore(database string) (storage.Provider, error) {
	cfg := config.Config{Database: database}
	if !cfg.IsPostgres() {
		return sqlite.NewStore(database), nil
	}
	if valid, err := postgres.ValidateConnString(database); !valid {
		if errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return nil, fmt.Errorf("%w: use a .pgpass file, PGPASSWORD or 'studylit keyring set %s'",
				err, constants.DefaultKeyringUser)
		}
		return nil, err
	}
	return postgres.New(database), nil
}

// Clock returns the current time.
func (c *Context) Clock() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Context) Location() *time.Location {
	if c.Config == nil {
		return time.UTC
	}
	return c.Config.Location()
}

// Today returns today's date in the configured timezone as YYYY-MM-DD.
func (c *Context) Today() string {
	return c.Clock().In(c.Location()).Format(constants.DateFormat)
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.writer(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.writer(), args...)
}

func (c *Context) writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// PrintJSON writes v as indented JSON.
func (c *Context) PrintJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.Println(string(jsonBytes))
	return nil
}

// ResolveUser returns the account selected by --user, or the only account
// when --user is empty.
func (c *Context) ResolveUser(ctx context.Context) (models.User, error) {
	if c.User != "" {
		user, err := c.Store.GetUserByEmail(ctx, c.User)
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, fmt.Errorf("no user with email %q", c.User)
		}
		return user, err
	}

	users, err := c.Store.GetAllUsers(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to list users: %w", err)
	}
	switch len(users) {
	case 0:
		return models.User{}, ErrNoUser
	case 1:
		return users[0], nil
	default:
		return models.User{}, fmt.Errorf("%d users exist, pick one with --user <email>", len(users))
	}
}

// LLM returns the configured provider, or nil when no API key is set.
func (c *Context) LLM() llm.Client {
	client, err := llm.NewHTTPClient(llm.Options{
		BaseURL: c.Config.LLM.BaseURL,
		APIKey:  c.Config.LLM.APIKey,
		Model:   c.Config.LLM.Model,
		Timeout: c.Config.LLM.Timeout,
	})
	if err != nil {
		logger.Debug("LLM disabled", "reason", err)
		return nil
	}
	return client
}

// Coach returns the AI coach, or nil when no LLM is configured.
func (c *Context) Coach() *coach.Coach {
	client := c.LLM()
	if client == nil {
		return nil
	}
	return coach.New(c.Store, client, coach.Options{
		Retention: c.Config.Chat.Retention,
		History:   c.Config.Chat.PromptHistory,
	}).WithClock(c.Clock)
}

// Reports returns the weekly report service. Generation needs an LLM and
// sharing needs a supporter webhook; both are optional here.
func (c *Context) Reports() *report.Service {
	return report.NewService(c.Store, c.LLM(), c.Notifier()).WithClock(c.Clock)
}

func (c *Context) Notifier() *notifier.Notifier {
	return notifier.New(c.Config.Supporter.WebhookURL, c.Config.Supporter.Secret)
}

// PerformAutomaticBackup snapshots a SQLite database and logs failures
// without interrupting the caller.
func (c *Context) PerformAutomaticBackup(ctx context.Context) {
	if c.Store.Driver() != sqlite.Dialect.Name {
		return
	}
	if _, err := backup.NewManager(c.Store.GetConfigPath()).Create(ctx); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}
