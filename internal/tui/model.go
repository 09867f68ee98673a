package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/tui/components/credo"
	"github.com/julianstephens/studylit/internal/tui/components/tasktree"
	"github.com/julianstephens/studylit/internal/tui/components/week"
	"github.com/julianstephens/studylit/internal/validation"
	"github.com/julianstephens/studylit/internal/weekly"
)

type TaskFormModel struct {
	Title string
	Due   string
}

type CredoFormModel struct {
	Done []string
}

// Options configures a Model. Zero values fall back to UTC and time.Now.
type Options struct {
	Location *time.Location
	Now      func() time.Time
}

type Model struct {
	store             storage.Provider
	user              models.User
	loc               *time.Location
	now               func() time.Time
	state             constants.SessionState
	previousState     constants.SessionState
	keys              KeyMap
	help              help.Model
	tree              tasktree.Model
	weekModel         week.Model
	credoModel        credo.Model
	window            weekly.Window
	form              *huh.Form
	taskForm          *TaskFormModel
	credoForm         *CredoFormModel
	addParentID       string
	deleteID          string
	deleteTitle       string
	validationWarning string
	statusErr         string
	quitting          bool
	width             int
	height            int
}

type tickMsg time.Time

func NewModel(store storage.Provider, user models.User, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := Model{
		store:      store,
		user:       user,
		loc:        opts.Location,
		now:        opts.Now,
		state:      constants.StateTasks,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		tree:       tasktree.New(0, 0),
		weekModel:  week.New(0, 0),
		credoModel: credo.New(""),
	}
	m.window = weekly.WeekWindow(m.today())
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// today is the current date in the configured timezone, as a UTC midnight.
func (m Model) today() time.Time {
	now := m.now().In(m.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (m Model) todayDay() string {
	return m.today().Format(constants.DateFormat)
}

// refresh reloads every view from the store.
func (m *Model) refresh() {
	ctx := context.Background()
	now := m.now()

	all, err := m.store.GetAllTasks(ctx, m.user.ID)
	if err != nil {
		m.fail("load tasks", err)
		return
	}
	forest, err := tasks.BuildTree(all)
	if err != nil {
		m.fail("build task tree", err)
		return
	}
	m.tree.SetTasks(forest, now)

	if err := m.loadWeek(ctx); err != nil {
		m.fail("load week", err)
		return
	}

	day := m.todayDay()
	logs, err := m.store.GetCredoLogs(ctx, m.user.ID, day, day)
	if err != nil {
		m.fail("load credo", err)
		return
	}
	m.credoModel.SetDay(day, logs)

	m.updateValidationStatus(ctx)
}

func (m *Model) loadWeek(ctx context.Context) error {
	inWeek, err := m.store.GetTasksInRange(ctx, m.user.ID, m.window.Start, m.window.Until())
	if err != nil {
		return err
	}
	logs, err := m.store.GetCredoLogs(ctx, m.user.ID, m.window.StartDay(), m.window.EndDay())
	if err != nil {
		return err
	}
	m.weekModel.SetWeek(m.window, weekly.Summarize(inWeek, m.window, m.now()), weekly.SummarizeCredo(logs, m.window))
	return nil
}

// updateValidationStatus counts integrity problems in this user's rows.
func (m *Model) updateValidationStatus(ctx context.Context) {
	rows, err := m.store.GetTaskRows(ctx)
	if err != nil {
		m.validationWarning = "⚠ Validation unavailable"
		return
	}
	mine := rows[:0:0]
	for _, r := range rows {
		if r.UserID == m.user.ID {
			mine = append(mine, r)
		}
	}
	result := validation.New(m.now()).ValidateTasks(mine)
	if result.HasConflicts() {
		m.validationWarning = fmt.Sprintf("⚠ %d integrity warning(s), run 'studylit doctor'", len(result.Conflicts))
	} else {
		m.validationWarning = ""
	}
}

func (m *Model) fail(action string, err error) {
	logger.Error("tui: failed to "+action, "error", err)
	m.statusErr = fmt.Sprintf("Failed to %s: %v", action, err)
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateTasks:
		keys = append(keys, m.tree.ShortHelp()...)
	case constants.StateWeek:
		keys = append(keys, m.keys.PrevWeek, m.keys.NextWeek)
	case constants.StateCredo:
		keys = append(keys, m.credoModel.ShortHelp()...)
	case constants.StateConfirmDelete:
		keys = []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}

	var actions []key.Binding
	switch m.state {
	case constants.StateTasks:
		actions = m.tree.FullHelp()
	case constants.StateWeek:
		actions = []key.Binding{m.keys.PrevWeek, m.keys.NextWeek}
	case constants.StateCredo:
		actions = m.credoModel.ShortHelp()
	}
	return [][]key.Binding{global, actions}
}
