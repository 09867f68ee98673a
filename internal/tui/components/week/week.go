package week

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

const barWidth = 30

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(5)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Italic(true)
)

type Model struct {
	viewport viewport.Model
	Window   weekly.Window
	Tasks    weekly.TaskSummary
	Credo    weekly.CredoSummary
	loaded   bool
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.loaded {
		return "Loading week..."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

// SetWeek replaces the summaries and re-renders.
func (m *Model) SetWeek(w weekly.Window, tasks weekly.TaskSummary, credo weekly.CredoSummary) {
	m.Window = w
	m.Tasks = tasks
	m.Credo = credo
	m.loaded = true
	m.Render()
	m.viewport.GotoTop()
}

func (m *Model) Render() {
	if !m.loaded {
		return
	}
	m.viewport.SetContent(Render(m.Window, m.Tasks, m.Credo))
}

// Render draws the weekly summary as plain styled text.
func Render(w weekly.Window, s weekly.TaskSummary, c weekly.CredoSummary) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Week %s to %s", w.StartDay(), w.EndDay())))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Studied: %s\n\n", utils.FormatSeconds(s.TotalSeconds))

	var peak int64
	for _, d := range s.Daily {
		peak = max(peak, d.Seconds)
	}
	for _, d := range s.Daily {
		n := 0
		if peak > 0 {
			n = int(d.Seconds * barWidth / peak)
		}
		if d.Seconds > 0 && n == 0 {
			n = 1
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			labelStyle.Render(d.Label),
			barStyle.Render(strings.Repeat("█", n))+strings.Repeat(" ", barWidth-n),
			utils.FormatSeconds(d.Seconds))
	}

	sc := s.StatusCounts
	fmt.Fprintf(&b, "\nTasks: %d to do, %d in progress, %d paused, %d done\n",
		sc.Todo, sc.InProgress, sc.Paused, sc.Done)

	if len(s.TopTasks) > 0 {
		b.WriteString("\n" + headerStyle.Render("Most time") + "\n")
		for i, t := range s.TopTasks {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, t.Title, utils.FormatSeconds(t.Seconds))
		}
	}

	b.WriteString("\n" + headerStyle.Render(fmt.Sprintf("Credo: %d%% practiced", c.PracticedRate)) + "\n")
	for _, r := range c.Ranking {
		if r.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-28s %d/7\n", r.Label, r.Count)
	}
	if len(c.Missing) > 0 {
		labels := make([]string, len(c.Missing))
		for i, e := range c.Missing {
			labels[i] = e.Label
		}
		fmt.Fprintf(&b, "Not yet: %s\n", strings.Join(labels, ", "))
	}
	for _, h := range c.Highlights {
		b.WriteString(noteStyle.Render("“"+h+"”") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
