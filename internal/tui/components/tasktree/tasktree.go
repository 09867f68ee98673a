package tasktree

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/studylit/internal/accrual"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/utils"
)

var (
	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// StatusMsg asks the parent model to move a task to Status.
type StatusMsg struct {
	ID     string
	Status models.TaskStatus
}

// AddMsg asks for a new task; ParentID is empty for a top-level task.
type AddMsg struct {
	ParentID string
}

// DeleteMsg asks for confirmation before deleting a task and its subtasks.
type DeleteMsg struct {
	ID    string
	Title string
}

type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Add    key.Binding
	AddSub key.Binding
	Start  key.Binding
	Pause  key.Binding
	Done   key.Binding
	Reset  key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		AddSub: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "add subtask"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause"),
		),
		Done: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

// Row is one visible line of the tree.
type Row struct {
	Task  models.Task
	Depth int
}

type Model struct {
	rows   []Row
	cursor int
	offset int
	keys   KeyMap
	now    time.Time
	width  int
	height int
}

func New(width, height int) Model {
	return Model{keys: DefaultKeyMap(), width: width, height: height}
}

// SetTasks replaces the rows, keeping the cursor on the same task when it
// still exists.
func (m *Model) SetTasks(forest []*tasks.Node, now time.Time) {
	selected, hadSelection := m.Selected()
	m.rows = m.rows[:0]
	tasks.Walk(forest, func(n *tasks.Node, depth int) {
		m.rows = append(m.rows, Row{Task: n.Task, Depth: depth})
	})
	m.now = now

	if hadSelection {
		for i, r := range m.rows {
			if r.Task.ID == selected.ID {
				m.cursor = i
				m.scroll()
				return
			}
		}
	}
	m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
	m.scroll()
}

// SetNow moves the clock used for live timers.
func (m *Model) SetNow(now time.Time) {
	m.now = now
}

// Selected returns the task under the cursor.
func (m Model) Selected() (models.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return models.Task{}, false
	}
	return m.rows[m.cursor].Task, true
}

// Rows returns the visible rows in display order.
func (m Model) Rows() []Row {
	return m.rows
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.scroll()
}

func (m *Model) scroll() {
	if m.height <= 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.scroll()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.scroll()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Add):
		return m, func() tea.Msg { return AddMsg{} }
	}

	t, ok := m.Selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.AddSub):
		return m, func() tea.Msg { return AddMsg{ParentID: t.ID} }
	case key.Matches(keyMsg, m.keys.Delete):
		return m, func() tea.Msg { return DeleteMsg{ID: t.ID, Title: t.Title} }
	case key.Matches(keyMsg, m.keys.Start):
		return m, status(t, models.StatusInProgress)
	case key.Matches(keyMsg, m.keys.Pause):
		return m, status(t, models.StatusPaused)
	case key.Matches(keyMsg, m.keys.Done):
		return m, status(t, models.StatusDone)
	case key.Matches(keyMsg, m.keys.Reset):
		return m, status(t, models.StatusTodo)
	}
	return m, nil
}

func status(t models.Task, s models.TaskStatus) tea.Cmd {
	if t.Status() == s {
		return nil
	}
	return func() tea.Msg { return StatusMsg{ID: t.ID, Status: s} }
}

func (m Model) View() string {
	if len(m.rows) == 0 {
		return "\n  No tasks yet.\n  Press 'a' to add one."
	}

	end := len(m.rows)
	if m.height > 0 {
		end = min(end, m.offset+m.height)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) renderRow(i int) string {
	r := m.rows[i]
	t := r.Task

	title := t.Title
	switch t.Status() {
	case models.StatusDone:
		title = doneStyle.Render(title)
	case models.StatusInProgress:
		title = runningStyle.Render(title)
	}

	meta := []string{utils.FormatSeconds(accrual.EffectiveSeconds(t, m.now))}
	if t.Due != nil {
		due := "due " + t.Due.UTC().Format(constants.DateFormat)
		if t.Status() != models.StatusDone && t.Due.Before(m.now) {
			due = overdueStyle.Render(due)
		}
		meta = append(meta, due)
	}

	prefix := "  "
	if i == m.cursor {
		prefix = cursorStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s%s %s  %s",
		prefix,
		strings.Repeat("  ", r.Depth),
		Glyph(t.Status()),
		title,
		metaStyle.Render(strings.Join(meta, " · ")),
	)
}

// Glyph is the status marker shown in front of a task.
func Glyph(s models.TaskStatus) string {
	switch s {
	case models.StatusInProgress:
		return "▶"
	case models.StatusPaused:
		return "‖"
	case models.StatusDone:
		return "✓"
	}
	return "○"
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Add, m.keys.Start, m.keys.Pause, m.keys.Done, m.keys.Delete}
}

func (m Model) FullHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Add, m.keys.AddSub, m.keys.Start, m.keys.Pause, m.keys.Done, m.keys.Reset, m.keys.Delete}
}
