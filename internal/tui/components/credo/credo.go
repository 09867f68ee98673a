package credo

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/studylit/internal/models"
)

var (
	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// EditMsg asks the parent model to open the credo form for Day.
type EditMsg struct {
	Day string
}

type KeyMap struct {
	Edit key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "log today"),
		),
	}
}

type Model struct {
	Day  string
	logs map[string]models.CredoLog
	keys KeyMap
}

func New(day string) Model {
	return Model{Day: day, logs: map[string]models.CredoLog{}, keys: DefaultKeyMap()}
}

// SetDay replaces the logs shown for day.
func (m *Model) SetDay(day string, logs []models.CredoLog) {
	m.Day = day
	m.logs = make(map[string]models.CredoLog, len(logs))
	for _, l := range logs {
		m.logs[l.Item] = l
	}
}

// Logs returns the logs for the current day keyed by item id.
func (m Model) Logs() map[string]models.CredoLog {
	return m.logs
}

// DoneItems returns the ids of items marked done, in canonical order.
func (m Model) DoneItems() []string {
	var out []string
	for _, item := range models.CredoItems {
		if m.logs[item.ID].Done {
			out = append(out, item.ID)
		}
	}
	return out
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Edit) {
		day := m.Day
		return m, func() tea.Msg { return EditMsg{Day: day} }
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	done := len(m.DoneItems())
	fmt.Fprintf(&b, "Credo for %s: %d of %d\n\n", m.Day, done, len(models.CredoItems))
	for _, item := range models.CredoItems {
		l, ok := m.logs[item.ID]
		if ok && l.Done {
			b.WriteString(doneStyle.Render("✓ " + item.Label))
		} else {
			b.WriteString(pendingStyle.Render("○ " + item.Label))
		}
		if ok && l.Note != "" {
			b.WriteString("  " + noteStyle.Render(l.Note))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Edit}
}
