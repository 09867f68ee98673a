package tasks

import (
	"fmt"
	"time"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/models"
)

// fold closes a running segment into the counter.
func fold(t models.Task, now time.Time) models.Task {
	if r, ok := t.State.(models.Running); ok && r.Timing() {
		t.WorkedSeconds = accrual.Fold(t.WorkedSeconds, r.Since, now)
	}
	return t
}

// Start begins a live segment. A task that is already timing is unchanged.
func Start(t models.Task, now time.Time) models.Task {
	if r, ok := t.State.(models.Running); ok && r.Timing() {
		return t
	}
	t.State = models.Running{Since: now.UTC()}
	t.UpdatedAt = now
	return t
}

// Pause folds the live segment and parks the task.
func Pause(t models.Task, now time.Time) models.Task {
	t = fold(t, now)
	t.State = models.Paused{}
	t.UpdatedAt = now
	return t
}

// Complete folds the live segment and marks the task done.
func Complete(t models.Task, now time.Time) models.Task {
	t = fold(t, now)
	t.State = models.Done{}
	t.UpdatedAt = now
	return t
}

// Reset folds the live segment and returns the task to todo.
func Reset(t models.Task, now time.Time) models.Task {
	t = fold(t, now)
	t.State = models.Idle{}
	t.UpdatedAt = now
	return t
}

// Transition moves a task to the requested status.
func Transition(t models.Task, status models.TaskStatus, now time.Time) (models.Task, error) {
	switch status {
	case models.StatusTodo:
		return Reset(t, now), nil
	case models.StatusInProgress:
		return Start(t, now), nil
	case models.StatusPaused:
		return Pause(t, now), nil
	case models.StatusDone:
		return Complete(t, now), nil
	}
	return t, fmt.Errorf("invalid task status %q", status)
}
