package system

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/julianstephens/studylit/internal/backup"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/lockfile"
	"github.com/julianstephens/studylit/internal/migration"
	"github.com/julianstephens/studylit/internal/storage/sqlite"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/validation"
)

// migrator is implemented by stores that own a migration runner.
type migrator interface {
	Runner() (*migration.Runner, error)
}

type DoctorCmd struct {
	Fix bool `help:"Clear stale timers left on tasks that are not in progress."`
}

type checkStatus int

const (
	checkOK checkStatus = iota
	checkFail
	checkWarn
	checkSkip
)

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	bg := context.Background()
	hasError := false
	report := func(name string, status checkStatus, detail any) {
		switch status {
		case checkOK:
			ctx.Printf("✓ %s: OK\n", name)
		case checkFail:
			hasError = true
			ctx.Printf("❌ %s: FAIL\n", name)
			ctx.Printf("   Error: %v\n", detail)
		case checkWarn:
			ctx.Printf("⚠ %s: WARNING\n", name)
			ctx.Printf("   %v\n", detail)
		case checkSkip:
			ctx.Printf("⊘ %s: SKIPPED (%v)\n", name, detail)
		}
	}
	check := func(name string, err error) {
		if err != nil {
			report(name, checkFail, err)
		} else {
			report(name, checkOK, nil)
		}
	}

	reachable := checkDBReachable(bg, ctx)
	check("Database reachable", reachable)

	dbChecks := []struct {
		name string
		fn   func() error
	}{
		{"Schema version", func() error { return checkSchemaVersion(ctx) }},
		{"Migrations complete", func() error { return checkMigrationsComplete(ctx) }},
		{"Task integrity", func() error { return cmd.checkIntegrity(bg, ctx) }},
	}
	for _, c := range dbChecks {
		if reachable != nil {
			report(c.name, checkSkip, "database not reachable")
			continue
		}
		check(c.name, c.fn())
	}

	if ctx.Store.Driver() != sqlite.Dialect.Name {
		report("Backups present", checkSkip, "use pg_dump for PostgreSQL")
	} else if err := checkBackupsPresent(ctx); err != nil {
		report("Backups present", checkWarn, err)
	} else {
		report("Backups present", checkOK, nil)
	}

	check("Clock/timezone", checkClockTimezone(ctx))

	if ctx.Store.Driver() == sqlite.Dialect.Name {
		lock := lockfile.Path(filepath.Dir(ctx.Store.GetConfigPath()))
		info, err := lockfile.Check(lock)
		switch {
		case err == nil:
			ctx.Printf("ℹ Server: running at %s (pid %d)\n", info.Addr, info.PID)
		case errors.Is(err, lockfile.ErrNotRunning):
			ctx.Println("ℹ Server: not running")
		default:
			report("Server lockfile", checkWarn, err)
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(bg context.Context, ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if err := ctx.Store.Ping(bg); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func versions(ctx *cli.Context) (current, latest int, err error) {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return 0, 0, fmt.Errorf("store %s does not expose migrations", ctx.Store.Driver())
	}
	runner, err := m.Runner()
	if err != nil {
		return 0, 0, err
	}
	current, err = runner.GetCurrentVersion()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err = runner.GetLatestVersion()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get latest schema version: %w", err)
	}
	return current, latest, nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := versions(ctx)
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	current, latest, err := versions(ctx)
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'studylit migrate')", current, latest)
	}
	return nil
}

// checkIntegrity validates every task row and each user's credo logs.
// With --fix, stale timers are cleared before the result is judged.
func (cmd *DoctorCmd) checkIntegrity(bg context.Context, ctx *cli.Context) error {
	rows, err := ctx.Store.GetTaskRows(bg)
	if err != nil {
		return fmt.Errorf("failed to read tasks: %w", err)
	}
	v := validation.New(ctx.Clock())
	result := v.ValidateTasks(rows)

	users, err := ctx.Store.GetAllUsers(bg)
	if err != nil {
		return fmt.Errorf("failed to read users: %w", err)
	}
	for _, u := range users {
		logs, err := ctx.Store.GetCredoLogs(bg, u.ID, "", "9999-12-31")
		if err != nil {
			return fmt.Errorf("failed to read credo logs: %w", err)
		}
		result.Merge(v.ValidateCredo(logs))
	}

	if cmd.Fix && result.Count(validation.ConflictStaleTimer) > 0 {
		actions := validation.AutoFixStaleTimers(result.Conflicts, func(id string) error {
			return ctx.Store.ClearTaskTimer(bg, id)
		})
		for _, a := range actions {
			ctx.Printf("   %s\n", a.Action)
		}
		rows, err = ctx.Store.GetTaskRows(bg)
		if err != nil {
			return fmt.Errorf("failed to re-read tasks: %w", err)
		}
		fixed := v.ValidateTasks(rows)
		for _, c := range result.Conflicts {
			if c.Type == validation.ConflictUnknownCredo || c.Type == validation.ConflictInvalidCredoDay {
				fixed.Conflicts = append(fixed.Conflicts, c)
			}
		}
		result = fixed
	}

	if !result.HasConflicts() {
		return nil
	}
	for _, c := range result.Conflicts {
		ctx.Printf("   - %s\n", c.Description)
	}
	if n := result.Count(validation.ConflictStaleTimer); n > 0 && !cmd.Fix {
		return fmt.Errorf("%d conflict(s) found, %d fixable with 'studylit doctor --fix'", len(result.Conflicts), n)
	}
	return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
}

func checkBackupsPresent(ctx *cli.Context) error {
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found, consider creating one with 'studylit backup create'")
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Clock()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if !utils.ValidateTimezone(ctx.Config.Timezone) {
		return fmt.Errorf("configured timezone %q is invalid", ctx.Config.Timezone)
	}
	return nil
}
