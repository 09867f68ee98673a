package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusPaused     TaskStatus = "paused"
	StatusDone       TaskStatus = "done"
)

// Statuses lists every task status in display order.
var Statuses = []TaskStatus{StatusTodo, StatusInProgress, StatusPaused, StatusDone}

// ParseTaskStatus validates a status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

type TaskSource string

const (
	SourceManual   TaskSource = "manual"
	SourceQuickAdd TaskSource = "quick_add"
	SourceAIPlan   TaskSource = "ai_plan"
)

// TaskState is the lifecycle position of a task. Exactly one of Idle, Running,
// Paused or Done; only Running carries a resume timestamp.
type TaskState interface {
	Status() TaskStatus
	isTaskState()
}

type Idle struct{}

// Running is an in-progress task. A zero Since means the task is marked in
// progress without a live timer, which is what a child-driven cascade produces.
type Running struct {
	Since time.Time
}

type Paused struct{}

type Done struct{}

func (Idle) Status() TaskStatus    { return StatusTodo }
func (Running) Status() TaskStatus { return StatusInProgress }
func (Paused) Status() TaskStatus  { return StatusPaused }
func (Done) Status() TaskStatus    { return StatusDone }

func (Idle) isTaskState()    {}
func (Running) isTaskState() {}
func (Paused) isTaskState()  {}
func (Done) isTaskState()    {}

// Timing reports whether the state is a running segment with a known start.
func (r Running) Timing() bool {
	return !r.Since.IsZero()
}

// StateFromColumns rebuilds the state from its persisted form. A resume
// timestamp stored next to any status other than in_progress is dropped.
func StateFromColumns(status TaskStatus, lastStartedAt *time.Time) (TaskState, error) {
	switch status {
	case StatusTodo:
		return Idle{}, nil
	case StatusInProgress:
		if lastStartedAt == nil {
			return Running{}, nil
		}
		return Running{Since: lastStartedAt.UTC()}, nil
	case StatusPaused:
		return Paused{}, nil
	case StatusDone:
		return Done{}, nil
	}
	return nil, fmt.Errorf("invalid task status %q", status)
}

// StateColumns is the inverse of StateFromColumns.
func StateColumns(state TaskState) (TaskStatus, *time.Time) {
	if state == nil {
		return StatusTodo, nil
	}
	if r, ok := state.(Running); ok && r.Timing() {
		since := r.Since.UTC()
		return StatusInProgress, &since
	}
	return state.Status(), nil
}

// Task is a study task. Subtasks point at their parent through ParentID and
// always share the parent's owner.
type Task struct {
	ID            string
	UserID        string
	ParentID      *string
	Title         string
	Description   string
	Due           *time.Time
	State         TaskState
	WorkedSeconds int64
	Source        TaskSource
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Status returns the task's status, treating a missing state as todo.
func (t Task) Status() TaskStatus {
	if t.State == nil {
		return StatusTodo
	}
	return t.State.Status()
}

// LastStartedAt returns the live segment's start, if the task is timing.
func (t Task) LastStartedAt() *time.Time {
	_, since := StateColumns(t.State)
	return since
}

// HasParent reports whether the task is a subtask.
func (t Task) HasParent() bool {
	return t.ParentID != nil && *t.ParentID != ""
}

// MarshalJSON flattens State into status and lastStartedAt columns, the
// shape the store persists.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            string     `json:"id"`
		UserID        string     `json:"userId"`
		ParentID      *string    `json:"parentId"`
		Title         string     `json:"title"`
		Description   string     `json:"description"`
		Due           *time.Time `json:"due"`
		Status        TaskStatus `json:"status"`
		LastStartedAt *time.Time `json:"lastStartedAt"`
		WorkedSeconds int64      `json:"workedSeconds"`
		Source        TaskSource `json:"source"`
		CreatedAt     time.Time  `json:"createdAt"`
		UpdatedAt     time.Time  `json:"updatedAt"`
	}{
		ID:            t.ID,
		UserID:        t.UserID,
		ParentID:      t.ParentID,
		Title:         t.Title,
		Description:   t.Description,
		Due:           t.Due,
		Status:        t.Status(),
		LastStartedAt: t.LastStartedAt(),
		WorkedSeconds: t.WorkedSeconds,
		Source:        t.Source,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	})
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if t.UserID == "" {
		return fmt.Errorf("task must have an owner")
	}
	if t.ParentID != nil && *t.ParentID == t.ID {
		return fmt.Errorf("task cannot be its own parent")
	}
	if t.WorkedSeconds < 0 {
		return fmt.Errorf("worked seconds cannot be negative")
	}
	switch t.Source {
	case "", SourceManual, SourceQuickAdd, SourceAIPlan:
	default:
		return fmt.Errorf("invalid task source %q", t.Source)
	}
	return nil
}
