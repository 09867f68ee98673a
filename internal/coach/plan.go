package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
)

const (
	MaxPlanDays     = 60
	MaxPlanTasks    = 20
	MaxPlanSubtasks = 8
)

var (
	ErrEmptyGoal   = errors.New("goal cannot be empty")
	ErrInvalidDays = fmt.Errorf("days must be between 1 and %d", MaxPlanDays)
	ErrEmptyPlan   = errors.New("the coach returned an empty plan")
)

const planInstructions = `You plan study work. Reply with a JSON object only, shaped as:
{"tasks":[{"title":"...","description":"...","dueInDays":0,"subtasks":[{"title":"..."}]}]}
dueInDays counts from today (0 = today) and must not exceed %d.
Use at most %d tasks with at most %d subtasks each. Titles are short imperatives.`

type planSubtask struct {
	Title string `json:"title"`
}

type planTask struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueInDays   int           `json:"dueInDays"`
	Subtasks    []planSubtask `json:"subtasks"`
}

type planResponse struct {
	Tasks []planTask `json:"tasks"`
}

// Plan asks the model to break goal into dated tasks over the next days and
// stores them as ai_plan tasks. The result lists each task followed by its
// subtasks.
func (c *Coach) Plan(ctx context.Context, userID, goal string, days int) ([]models.Task, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, ErrEmptyGoal
	}
	if days < 1 || days > MaxPlanDays {
		return nil, ErrInvalidDays
	}

	now := c.now().UTC()
	system, err := c.BuildContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	prompt := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleSystem, Content: fmt.Sprintf(planInstructions, days-1, MaxPlanTasks, MaxPlanSubtasks)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Goal: %s\nDays available: %d", goal, days)},
	}

	var resp planResponse
	if err := c.client.ChatJSON(ctx, prompt, &resp); err != nil {
		logger.Warn("study plan failed", "user", userID, "err", err)
		return nil, fmt.Errorf("failed to get study plan: %w", err)
	}

	planned := buildPlan(userID, resp, days, now)
	if len(planned) == 0 {
		return nil, ErrEmptyPlan
	}
	for _, t := range planned {
		if err := c.store.AddTask(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to save planned task %q: %w", t.Title, err)
		}
	}
	logger.Info("study plan created", "user", userID, "tasks", len(planned))
	return planned, nil
}

// buildPlan turns the model's answer into tasks. Items without a title are
// dropped, limits are enforced and due offsets are clamped into [0, days).
func buildPlan(userID string, resp planResponse, days int, now time.Time) []models.Task {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out []models.Task
	count := 0
	for _, item := range resp.Tasks {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		if count == MaxPlanTasks {
			break
		}
		count++

		offset := min(max(item.DueInDays, 0), days-1)
		due := today.AddDate(0, 0, offset)

		parent := tasks.New(userID, item.Title, now)
		parent.Description = strings.TrimSpace(item.Description)
		parent.Source = models.SourceAIPlan
		parent.Due = &due
		out = append(out, parent)

		subs := 0
		for _, sub := range item.Subtasks {
			if strings.TrimSpace(sub.Title) == "" {
				continue
			}
			if subs == MaxPlanSubtasks {
				break
			}
			subs++
			child := tasks.NewSubtask(parent, sub.Title, now)
			childDue := due
			child.Due = &childDue
			out = append(out, child)
		}
	}
	return out
}
