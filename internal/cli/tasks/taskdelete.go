package tasks

import (
	"context"
	"fmt"

	"github.com/julianstephens/studylit/internal/cli"
)

type TaskDeleteCmd struct {
	ID string `arg:"" help:"Task ID to delete. Its subtasks are deleted too."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	task, err := ctx.Store.GetTask(bg, user.ID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task with ID %s: %w", c.ID, err)
	}
	children, err := ctx.Store.GetChildTasks(bg, user.ID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load subtasks: %w", err)
	}

	if err := ctx.Store.DeleteTask(bg, user.ID, c.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if len(children) > 0 {
		ctx.Printf("Deleted task: %s (ID: %s) and its subtasks\n", task.Title, c.ID)
	} else {
		ctx.Printf("Deleted task: %s (ID: %s)\n", task.Title, c.ID)
	}
	return nil
}
