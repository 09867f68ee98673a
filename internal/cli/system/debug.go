package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/report"
	"github.com/julianstephens/studylit/internal/storage"
)

type DebugCmd struct {
	DBPath   DebugDBPathCmd   `cmd:"" name:"db-path" help:"Show database path."`
	DumpWeek DebugDumpWeekCmd `cmd:"" help:"Dump a week's aggregates as JSON."`
	DumpTask DebugDumpTaskCmd `cmd:"" help:"Dump task data as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return ctx.PrintJSON(map[string]string{
		"path":   ctx.Store.GetConfigPath(),
		"driver": ctx.Store.Driver(),
	})
}

type DebugDumpWeekCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week (YYYY-MM-DD or 'today'). Defaults to today."`
}

func (cmd *DebugDumpWeekCmd) Run(ctx *cli.Context) error {
	day := cmd.Date
	if day == "" || day == "today" {
		day = ctx.Today()
	}
	ref, err := report.ParseRef(day, ctx.Clock())
	if err != nil {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD or 'today')", day)
	}

	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	week, err := ctx.Reports().Week(bg, user.ID, ref)
	if err != nil {
		return fmt.Errorf("failed to aggregate week: %w", err)
	}
	return ctx.PrintJSON(week)
}

type DebugDumpTaskCmd struct {
	ID string `arg:"" help:"ID of the task to dump."`
}

func (cmd *DebugDumpTaskCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	task, err := ctx.Store.GetTask(bg, user.ID, cmd.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("task not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get task: %w", err)
	}
	return ctx.PrintJSON(task)
}
