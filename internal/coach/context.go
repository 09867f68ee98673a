package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

// openTaskLimit caps how many unfinished tasks are listed in the prompt.
const openTaskLimit = 10

const coachPersona = `You are a friendly, practical study coach. Answer briefly and concretely.
Base your advice on the student's current tasks and practice record below.
Suggest at most three next actions. Never invent tasks the student does not have.`

// BuildContext renders the system prompt for userID's current week.
func (c *Coach) BuildContext(ctx context.Context, userID string, now time.Time) (string, error) {
	name := ""
	user, err := c.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		name = user.DisplayName
	case !errors.Is(err, storage.ErrNotFound):
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	window := weekly.WeekWindow(now)
	list, err := c.store.GetTasksInRange(ctx, userID, window.Start, window.Until())
	if err != nil {
		return "", fmt.Errorf("failed to load tasks: %w", err)
	}
	logs, err := c.store.GetCredoLogs(ctx, userID, window.StartDay(), window.EndDay())
	if err != nil {
		return "", fmt.Errorf("failed to load credo logs: %w", err)
	}

	return renderContext(name, window, list, logs, now), nil
}

func renderContext(name string, window weekly.Window, list []models.Task, logs []models.CredoLog, now time.Time) string {
	summary := weekly.Summarize(list, window, now)
	credo := weekly.SummarizeCredo(logs, window)

	var b strings.Builder
	b.WriteString(coachPersona)
	b.WriteString("\n\n")
	if name != "" {
		fmt.Fprintf(&b, "Student: %s\n", name)
	}
	fmt.Fprintf(&b, "Today: %s\n", now.Format(constants.DateFormat))
	fmt.Fprintf(&b, "Week: %s to %s\n", window.StartDay(), window.EndDay())
	fmt.Fprintf(&b, "Studied this week: %s\n", utils.FormatSeconds(summary.TotalSeconds))
	fmt.Fprintf(&b, "Tasks: %d todo, %d in progress, %d paused, %d done\n",
		summary.StatusCounts.Todo, summary.StatusCounts.InProgress,
		summary.StatusCounts.Paused, summary.StatusCounts.Done)

	open := 0
	for _, t := range list {
		if t.Status() == models.StatusDone || !weekly.Touches(t, window) {
			continue
		}
		if open == 0 {
			b.WriteString("\nOpen tasks:\n")
		}
		if open == openTaskLimit {
			b.WriteString("- ...\n")
			break
		}
		open++
		fmt.Fprintf(&b, "- %s [%s, %s", t.Title, t.Status(), utils.FormatSeconds(accrual.EffectiveSeconds(t, now)))
		if t.Due != nil {
			fmt.Fprintf(&b, ", due %s", t.Due.UTC().Format(constants.DateFormat))
		}
		b.WriteString("]\n")
	}

	fmt.Fprintf(&b, "\nCredo practiced this week: %d%%\n", credo.PracticedRate)
	if len(credo.Missing) > 0 {
		labels := make([]string, 0, len(credo.Missing))
		for _, m := range credo.Missing {
			labels = append(labels, m.Label)
		}
		fmt.Fprintf(&b, "Not yet practiced: %s\n", strings.Join(labels, "; "))
	}
	for _, h := range credo.Highlights {
		fmt.Fprintf(&b, "Note: %s\n", h)
	}
	return b.String()
}
