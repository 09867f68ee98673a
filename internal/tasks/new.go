package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/models"
)

// New returns an idle manual task owned by userID.
func New(userID, title string, now time.Time) models.Task {
	now = now.UTC()
	return models.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		State:     models.Idle{},
		Source:    models.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSubtask returns an idle task under parent, sharing its owner.
func NewSubtask(parent models.Task, title string, now time.Time) models.Task {
	t := New(parent.UserID, title, now)
	parentID := parent.ID
	t.ParentID = &parentID
	t.Source = parent.Source
	return t
}
