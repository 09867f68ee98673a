// Package accrual computes how long a task has been worked on.
package accrual

import (
	"time"

	"github.com/julianstephens/studylit/internal/models"
)

// LiveSeconds returns the whole seconds elapsed between since and now.
// A since in the future contributes nothing.
func LiveSeconds(since, now time.Time) int64 {
	if since.IsZero() {
		return 0
	}
	d := now.Sub(since)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// EffectiveSeconds is the stored counter plus the live segment of a running
// task, observed at now.
func EffectiveSeconds(task models.Task, now time.Time) int64 {
	stored := task.WorkedSeconds
	if stored < 0 {
		stored = 0
	}
	if r, ok := task.State.(models.Running); ok {
		return stored + LiveSeconds(r.Since, now)
	}
	return stored
}

// Fold returns the counter after closing the live segment that began at since.
func Fold(counter int64, since, now time.Time) int64 {
	if counter < 0 {
		counter = 0
	}
	return counter + LiveSeconds(since, now)
}
