package weekly

import (
	"sort"
	"time"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
)

// TopTaskLimit caps the ranked task list.
const TopTaskLimit = 3

type DailyBucket struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Seconds int64  `json:"seconds"`
}

type StatusCounts struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Paused     int `json:"paused"`
	Done       int `json:"done"`
}

type TopTask struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Seconds int64  `json:"seconds"`
}

// TaskSummary is the weekly time and status breakdown.
type TaskSummary struct {
	TotalSeconds int64         `json:"totalSeconds"`
	Daily        []DailyBucket `json:"daily"`
	StatusCounts StatusCounts  `json:"statusCounts"`
	TopTasks     []TopTask     `json:"topTasks"`
}

// Touches reports whether a task belongs to the window: due in it or created in it.
func Touches(t models.Task, w Window) bool {
	if t.Due != nil && w.Contains(*t.Due) {
		return true
	}
	return !t.CreatedAt.IsZero() && w.Contains(t.CreatedAt)
}

// Summarize computes the weekly task summary at now. Tasks outside the window
// are ignored.
func Summarize(list []models.Task, w Window, now time.Time) TaskSummary {
	summary := TaskSummary{
		Daily:    make([]DailyBucket, constants.DaysPerWeek),
		TopTasks: []TopTask{},
	}
	for i, day := range w.Days() {
		summary.Daily[i] = DailyBucket{Date: day.Format(constants.DateFormat), Label: dayLabels[i]}
	}

	var ranked []TopTask
	for _, t := range list {
		if !Touches(t, w) {
			continue
		}
		seconds := accrual.EffectiveSeconds(t, now)
		summary.TotalSeconds += seconds

		if t.Due != nil {
			if i, ok := dayIndex(w, *t.Due); ok {
				summary.Daily[i].Seconds += seconds
			}
		}

		switch t.Status() {
		case models.StatusTodo:
			summary.StatusCounts.Todo++
		case models.StatusInProgress:
			summary.StatusCounts.InProgress++
		case models.StatusPaused:
			summary.StatusCounts.Paused++
		case models.StatusDone:
			summary.StatusCounts.Done++
		}

		ranked = append(ranked, TopTask{ID: t.ID, Title: t.Title, Seconds: seconds})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Seconds != ranked[j].Seconds {
			return ranked[i].Seconds > ranked[j].Seconds
		}
		if ranked[i].Title != ranked[j].Title {
			return ranked[i].Title < ranked[j].Title
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > TopTaskLimit {
		ranked = ranked[:TopTaskLimit]
	}
	summary.TopTasks = append(summary.TopTasks, ranked...)

	return summary
}
