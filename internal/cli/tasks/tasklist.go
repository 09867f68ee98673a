package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/tui/components/tasktree"
	"github.com/julianstephens/studylit/internal/utils"
)

type TaskListCmd struct {
	Status  string `short:"s" help:"Only show tasks with this status (todo|in_progress|paused|done)."`
	ShowIDs bool   `help:"Show task IDs." name:"show-ids"`
	JSON    bool   `help:"Print tasks as JSON."`
}

func (c *TaskListCmd) Validate() error {
	if c.Status == "" {
		return nil
	}
	_, err := models.ParseTaskStatus(c.Status)
	return err
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	all, err := ctx.Store.GetAllTasks(bg, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	list := all[:0:0]
	for _, t := range all {
		if c.Status == "" || string(t.Status()) == c.Status {
			list = append(list, t)
		}
	}

	if c.JSON {
		return ctx.PrintJSON(list)
	}
	if len(list) == 0 {
		ctx.Println("No tasks found")
		return nil
	}

	now := ctx.Clock()
	ctx.Println("Tasks:")
	for _, t := range list {
		ctx.Println("  " + formatTask(t, now, c.ShowIDs))
	}
	return nil
}

// TaskTreeCmd prints the task hierarchy.
type TaskTreeCmd struct {
	ShowIDs bool `help:"Show task IDs." name:"show-ids"`
}

func (c *TaskTreeCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	all, err := ctx.Store.GetAllTasks(bg, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	forest, err := tasks.BuildTree(all)
	if err != nil {
		return fmt.Errorf("failed to build task tree: %w", err)
	}
	if len(forest) == 0 {
		ctx.Println("No tasks found")
		return nil
	}

	now := ctx.Clock()
	tasks.Walk(forest, func(n *tasks.Node, depth int) {
		ctx.Println(strings.Repeat("  ", depth) + formatTask(n.Task, now, c.ShowIDs))
	})
	return nil
}

func formatTask(t models.Task, now time.Time, showID bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", tasktree.Glyph(t.Status()), t.Title)
	if showID {
		fmt.Fprintf(&b, " (ID: %s)", t.ID)
	}
	fmt.Fprintf(&b, " - %s", utils.FormatSeconds(accrual.EffectiveSeconds(t, now)))
	if t.Due != nil {
		fmt.Fprintf(&b, ", due %s", t.Due.UTC().Format("2006-01-02 15:04"))
		if t.Status() != models.StatusDone && t.Due.Before(now) {
			b.WriteString(" (overdue)")
		}
	}
	return b.String()
}
