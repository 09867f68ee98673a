package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/studylit/internal/constants"
)

const tabCount = constants.StateCredo + 1

var tabTitles = []string{"Tasks", "Week", "Credo"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateTasks:
		content = docStyle.Render(m.tree.View())
	case constants.StateWeek:
		content = docStyle.Render(m.weekModel.View())
	case constants.StateCredo:
		content = docStyle.Render(m.credoModel.View())
	case constants.StateAddTask, constants.StateCredoForm:
		content = docStyle.Render(m.form.View())
	case constants.StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	var banner string
	switch {
	case m.statusErr != "":
		banner = dangerStyle.Render(m.statusErr)
	case m.validationWarning != "":
		banner = warningStyle.Render(m.validationWarning)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		banner,
		content,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	active := m.state
	if active >= tabCount {
		active = m.previousState
	}
	var tabs []string
	for i, title := range tabTitles {
		if active == constants.SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	name := m.user.DisplayName
	if name == "" {
		name = m.user.Email
	}
	tabs = append(tabs, userStyle.Render(name))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, max(m.height-4, 0),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q and all of its subtasks?", m.deleteTitle)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
