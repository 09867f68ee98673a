package tasks

import (
	"context"
	"fmt"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
)

type TaskStartCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskStartCmd) Run(ctx *cli.Context) error {
	return changeStatus(ctx, c.ID, models.StatusInProgress)
}

type TaskPauseCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskPauseCmd) Run(ctx *cli.Context) error {
	return changeStatus(ctx, c.ID, models.StatusPaused)
}

type TaskDoneCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	return changeStatus(ctx, c.ID, models.StatusDone)
}

type TaskResetCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskResetCmd) Run(ctx *cli.Context) error {
	return changeStatus(ctx, c.ID, models.StatusTodo)
}

func changeStatus(ctx *cli.Context, id string, status models.TaskStatus) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	now := ctx.Clock()
	change, err := ctx.Store.ChangeTaskStatus(bg, user.ID, id, status, now)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	t := change.Task
	ctx.Printf("%s: %s (%s)\n", t.Status(), t.Title, utils.FormatSeconds(accrual.EffectiveSeconds(t, now)))
	if change.Parent != nil {
		ctx.Printf("  parent %s is now %s\n", change.Parent.Title, change.Parent.Status())
	}
	return nil
}
