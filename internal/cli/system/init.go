package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/keyring"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tasks"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized studylit storage at: %s\n", ctx.Store.GetConfigPath())

	if err := ensureJWTSecret(ctx); err != nil {
		logger.Warn("could not store a server signing secret", "error", err)
		ctx.Printf("⚠ No JWT secret stored: set %sJWT_SECRET before running 'studylit serve'\n", constants.EnvPrefix)
	}

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	dbPath := ctx.Store.GetConfigPath()
	if !ctx.Config.IsPostgres() {
		if abs, err := filepath.Abs(dbPath); err == nil {
			dbPath = abs
		}
	}
	if c.Source != "" {
		if absSource, err := filepath.Abs(c.Source); err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}
	if ctx.Config.IsPostgres() {
		return errors.New("--force only resets SQLite databases, drop the PostgreSQL schema manually")
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		for _, ext := range []string{"-wal", "-shm"} {
			_ = os.Remove(dbPath + ext)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

// ensureJWTSecret stores a random signing key in the keyring unless one is
// already configured.
func ensureJWTSecret(ctx *cli.Context) error {
	if ctx.Config.Server.JWTSecret != "" {
		return nil
	}
	if _, err := keyring.Get(constants.KeyringJWTSecret); err == nil {
		return nil
	} else if !errors.Is(err, keyring.ErrNotFound) {
		return err
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return err
	}
	if err := keyring.Set(constants.KeyringJWTSecret, secret); err != nil {
		return err
	}
	ctx.Config.Server.JWTSecret = secret
	ctx.Println("Generated a JWT signing secret in the OS keyring.")
	return nil
}

// copyData copies accounts, tasks, credo logs and notes from another
// database. Chat history and weekly reports are not copied.
func (c *InitCmd) copyData(ctx *cli.Context, source string) error {
	src, err := cli.OpenStore(source)
	if err != nil {
		return err
	}
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	bg := context.Background()
	users, err := src.GetAllUsers(bg)
	if err != nil {
		return fmt.Errorf("failed to get users from source: %w", err)
	}

	var nTasks, nLogs, nNotes int
	for _, u := range users {
		if err := ctx.Store.AddUser(bg, u); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return fmt.Errorf("user %s already exists in the destination", u.Email)
			}
			return fmt.Errorf("failed to add user %s: %w", u.Email, err)
		}

		all, err := src.GetAllTasks(bg, u.ID)
		if err != nil {
			return fmt.Errorf("failed to get tasks from source: %w", err)
		}
		forest, err := tasks.BuildTree(all)
		if err != nil {
			return fmt.Errorf("source tasks for %s are inconsistent: %w", u.Email, err)
		}
		// Parents precede their children.
		for _, t := range tasks.Flatten(forest) {
			if err := ctx.Store.AddTask(bg, t); err != nil {
				return fmt.Errorf("failed to add task %s: %w", t.ID, err)
			}
			nTasks++
		}

		logs, err := src.GetCredoLogs(bg, u.ID, "", "9999-12-31")
		if err != nil {
			return fmt.Errorf("failed to get credo logs from source: %w", err)
		}
		byDay := make(map[string][]models.CredoLog)
		var days []string
		for _, l := range logs {
			if _, seen := byDay[l.Day]; !seen {
				days = append(days, l.Day)
			}
			byDay[l.Day] = append(byDay[l.Day], l)
		}
		for _, day := range days {
			if err := ctx.Store.ReplaceCredoDay(bg, u.ID, day, byDay[day], ctx.Clock()); err != nil {
				return fmt.Errorf("failed to copy credo logs for %s: %w", day, err)
			}
			nLogs += len(byDay[day])
		}

		notes, err := src.GetAllNotes(bg, u.ID)
		if err != nil {
			return fmt.Errorf("failed to get notes from source: %w", err)
		}
		for _, n := range notes {
			if err := ctx.Store.AddNote(bg, n); err != nil {
				return fmt.Errorf("failed to add note %s: %w", n.ID, err)
			}
			nNotes++
		}
	}

	ctx.Printf("    Migrated %d users, %d tasks, %d credo logs, %d notes\n", len(users), nTasks, nLogs, nNotes)
	return nil
}
