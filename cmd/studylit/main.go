package main

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/cli/backups"
	"github.com/julianstephens/studylit/internal/cli/coaching"
	"github.com/julianstephens/studylit/internal/cli/credo"
	"github.com/julianstephens/studylit/internal/cli/reports"
	"github.com/julianstephens/studylit/internal/cli/system"
	"github.com/julianstephens/studylit/internal/cli/tasks"
	"github.com/julianstephens/studylit/internal/cli/users"
	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/constants"
	apperrors "github.com/julianstephens/studylit/internal/errors"
	"github.com/julianstephens/studylit/internal/logger"
)

var CLI struct {
	Version   kong.VersionFlag
	Config    string `help:"Path to the YAML config file. Defaults to ~/.config/studylit/config.yaml."`
	DB        string `name:"db" help:"SQLite path or PostgreSQL URL. Overrides the config file. Passwords must not be embedded in the URL, use .pgpass, PGPASSWORD or the OS keyring."`
	DebugLog  bool   `name:"debug" help:"Enable debug logging."`
	UserEmail string `name:"user" short:"u" env:"STUDYLIT_USER" help:"Email of the account to act as. Optional when only one account exists."`

	Init    system.InitCmd    `cmd:"" help:"Initialize studylit storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Serve   system.ServeCmd   `cmd:"" help:"Run the HTTP API server."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`

	User users.UserCmd `cmd:"" help:"Manage accounts."`
	Task struct {
		Add    tasks.TaskAddCmd    `cmd:"" help:"Add a task or subtask."`
		List   tasks.TaskListCmd   `cmd:"" help:"List tasks."`
		Tree   tasks.TaskTreeCmd   `cmd:"" help:"Show tasks as a tree."`
		Start  tasks.TaskStartCmd  `cmd:"" help:"Start or resume the timer on a task."`
		Pause  tasks.TaskPauseCmd  `cmd:"" help:"Pause a running task."`
		Done   tasks.TaskDoneCmd   `cmd:"" help:"Mark a task done."`
		Reset  tasks.TaskResetCmd  `cmd:"" help:"Move a task back to todo."`
		Due    tasks.TaskDueCmd    `cmd:"" help:"Set or clear a due date."`
		Edit   tasks.TaskEditCmd   `cmd:"" help:"Edit the title or description of a task."`
		Delete tasks.TaskDeleteCmd `cmd:"" help:"Delete a task and its subtasks."`
	} `cmd:"" help:"Manage study tasks."`
	Credo   credo.CredoCmd    `cmd:"" help:"Log and review credo practice."`
	Week    reports.WeekCmd   `cmd:"" help:"Show the weekly summary."`
	Report  reports.ReportCmd `cmd:"" help:"Generate, show and share weekly AI reports."`
	Chat    coaching.ChatCmd  `cmd:"" help:"Talk to the AI study coach."`
	Plan    coaching.PlanCmd  `cmd:"" help:"Ask the AI coach to break a goal into tasks."`
	Backup  backups.BackupCmd `cmd:"" help:"Manage database backups."`
	Keyring system.KeyringCmd `cmd:"" help:"Manage secrets in the OS keyring."`
	Debug   system.DebugCmd   `cmd:"" help:"Debug commands for troubleshooting."`
}

// commands that open or inspect the database themselves
var selfLoading = []string{"init", "migrate", "doctor", "keyring"}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Study coaching companion: tasks with timers, a daily credo and weekly AI reports."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(config.Options{Path: CLI.Config})
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.DB != "" {
		if cfg.Database, err = config.ExpandHome(CLI.DB); err != nil {
			apperrors.Fatal(err)
		}
	}
	if CLI.DebugLog {
		cfg.Debug = true
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.ConfigDir}); err != nil {
		apperrors.Fatalf("failed to initialize logger: %v", err)
	}

	appCtx := &cli.Context{Config: cfg, User: CLI.UserEmail}
	command := ctx.Command()
	if !strings.HasPrefix(command, "keyring") {
		store, err := cli.OpenStore(cfg.Database)
		if err != nil {
			apperrors.Fatal(err)
		}
		appCtx.Store = store

		if !loadsItself(command) {
			if err := store.Load(); err != nil {
				apperrors.Fatal(err)
			}
		}
	}

	err = ctx.Run(appCtx)
	if appCtx.Store != nil {
		if cerr := appCtx.Store.Close(); cerr != nil {
			logger.Warn("failed to close database", "error", cerr)
		}
	}
	apperrors.Fatal(err)
}

func loadsItself(command string) bool {
	name, _, _ := strings.Cut(command, " ")
	for _, c := range selfLoading {
		if name == c {
			return true
		}
	}
	return false
}
