package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/studylit/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with an existing row
	ErrConflict = errors.New("conflict")
)

// StatusChange is the outcome of a child status change and its parent cascade.
// Parent is nil when the task has no parent or the parent was left unchanged.
type StatusChange struct {
	Task   models.Task
	Parent *models.Task
}

// TaskRow is a task exactly as persisted, for integrity checks that must see
// values the model would normalize away.
type TaskRow struct {
	ID            string
	UserID        string
	ParentID      *string
	ParentUserID  *string
	Title         string
	Status        string
	WorkedSeconds int64
	DueAt         *string
	LastStartedAt *string
	CreatedAt     string
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	Ping(ctx context.Context) error

	// Users
	AddUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)

	// Tasks
	AddTask(ctx context.Context, task models.Task) error
	GetTask(ctx context.Context, userID, id string) (models.Task, error)
	// GetTasksInRange returns the user's tasks that are due or were created in [from, until).
	GetTasksInRange(ctx context.Context, userID string, from, until time.Time) ([]models.Task, error)
	GetAllTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetChildTasks(ctx context.Context, userID, parentID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, task models.Task) error
	// DeleteTask removes a task and all of its descendants.
	DeleteTask(ctx context.Context, userID, id string) error
	// ChangeTaskStatus moves a task to status and recomputes its parent, as one
	// transaction.
	ChangeTaskStatus(ctx context.Context, userID, id string, status models.TaskStatus, now time.Time) (StatusChange, error)

	// Credo logs
	GetCredoLogs(ctx context.Context, userID, startDay, endDay string) ([]models.CredoLog, error)
	// ReplaceCredoDay deletes every log for (user, day) and inserts logs in its
	// place. Logs without a creation time are stamped with now.
	ReplaceCredoDay(ctx context.Context, userID, day string, logs []models.CredoLog, now time.Time) error

	// Chat
	// AppendChatPair stores a user message and its reply, then trims the user's
	// history to the newest retention messages.
	AppendChatPair(ctx context.Context, userID string, question, reply models.ChatMessage, retention int) error
	// GetChatHistory returns up to limit of the newest messages, oldest first.
	GetChatHistory(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	DeleteChatHistory(ctx context.Context, userID string) error

	// Weekly reports
	SaveWeeklyReport(ctx context.Context, report models.WeeklyReport) error
	GetWeeklyReport(ctx context.Context, userID, weekStart string) (models.WeeklyReport, error)

	// Notes
	AddNote(ctx context.Context, note models.Note) error
	GetNote(ctx context.Context, userID, id string) (models.Note, error)
	GetAllNotes(ctx context.Context, userID string) ([]models.Note, error)
	UpdateNote(ctx context.Context, note models.Note) error
	DeleteNote(ctx context.Context, userID, id string) error

	// Maintenance
	// GetTaskRows returns every task row across all users.
	GetTaskRows(ctx context.Context) ([]TaskRow, error)
	// ClearTaskTimer drops a resume timestamp stored on a task that is not in progress.
	ClearTaskTimer(ctx context.Context, id string) error

	// Utils
	GetConfigPath() string
	Driver() string
}
