package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/utils"
)

type TaskAddCmd struct {
	Title       string `arg:"" help:"Task title."`
	Parent      string `short:"p" help:"ID of the parent task; the new task becomes its subtask."`
	Due         string `short:"d" help:"Due date: YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC 3339."`
	Description string `short:"m" help:"Longer description."`
}

func (c *TaskAddCmd) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	return nil
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	now := ctx.Clock()
	var task models.Task
	if c.Parent != "" {
		parent, err := ctx.Store.GetTask(bg, user.ID, c.Parent)
		if err != nil {
			return fmt.Errorf("failed to find parent task %s: %w", c.Parent, err)
		}
		task = tasks.NewSubtask(parent, c.Title, now)
	} else {
		task = tasks.New(user.ID, c.Title, now)
	}
	task.Description = strings.TrimSpace(c.Description)

	if c.Due != "" {
		due, err := utils.ParseDue(c.Due)
		if err != nil {
			return err
		}
		task.Due = &due
	}

	if err := task.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.AddTask(bg, task); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}

	ctx.Printf("Added task: %s (ID: %s)\n", task.Title, task.ID)
	return nil
}
