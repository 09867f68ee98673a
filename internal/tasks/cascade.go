package tasks

import (
	"time"

	"github.com/julianstephens/studylit/internal/models"
)

// Cascade decides the parent's status after changed (carrying its new state)
// has moved. children is the parent's full child set; the entry for changed
// is taken from changed itself. The second return is false when the parent
// should be left alone.
func Cascade(children []models.Task, changed models.Task) (models.TaskStatus, bool) {
	if len(children) == 0 {
		return "", false
	}

	allDone := true
	for _, c := range children {
		status := c.Status()
		if c.ID == changed.ID {
			status = changed.Status()
		}
		if status != models.StatusDone {
			allDone = false
			break
		}
	}

	if allDone {
		return models.StatusDone, true
	}
	if changed.Status() != models.StatusDone {
		return models.StatusInProgress, true
	}
	return "", false
}

// ApplyCascade moves parent to a status produced by Cascade. A parent that is
// already in progress keeps its timer; otherwise it is marked in progress
// without starting one.
func ApplyCascade(parent models.Task, status models.TaskStatus, now time.Time) models.Task {
	switch status {
	case models.StatusDone:
		return Complete(parent, now)
	case models.StatusInProgress:
		if _, ok := parent.State.(models.Running); ok {
			return parent
		}
		parent.State = models.Running{}
		parent.UpdatedAt = now
	}
	return parent
}
