package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/utils"
)

type TaskEditCmd struct {
	ID          string  `arg:"" help:"Task ID."`
	Title       *string `short:"t" help:"New title."`
	Description *string `short:"m" help:"New description."`
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	task, err := ctx.Store.GetTask(bg, user.ID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}

	if c.Title != nil {
		task.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		task.Description = strings.TrimSpace(*c.Description)
	}
	if err := task.Validate(); err != nil {
		return err
	}

	task.UpdatedAt = ctx.Clock().UTC()
	if err := ctx.Store.UpdateTask(bg, task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	ctx.Printf("Updated task: %s (ID: %s)\n", task.Title, task.ID)
	return nil
}

// TaskDueCmd sets or clears a task's due date.
type TaskDueCmd struct {
	ID    string `arg:"" help:"Task ID."`
	Due   string `arg:"" optional:"" help:"Due date: YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC 3339."`
	Clear bool   `help:"Remove the due date."`
}

func (c *TaskDueCmd) Validate() error {
	if c.Clear == (c.Due != "") {
		return fmt.Errorf("give either a due date or --clear")
	}
	return nil
}

func (c *TaskDueCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	task, err := ctx.Store.GetTask(bg, user.ID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}

	if c.Clear {
		task.Due = nil
	} else {
		due, err := utils.ParseDue(c.Due)
		if err != nil {
			return err
		}
		task.Due = &due
	}

	task.UpdatedAt = ctx.Clock().UTC()
	if err := ctx.Store.UpdateTask(bg, task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if task.Due == nil {
		ctx.Printf("Cleared due date: %s\n", task.Title)
	} else {
		ctx.Printf("Due %s: %s\n", task.Due.UTC().Format("2006-01-02 15:04"), task.Title)
	}
	return nil
}
