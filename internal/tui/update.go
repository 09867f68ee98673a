package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tasks"
	"github.com/julianstephens/studylit/internal/tui/components/credo"
	"github.com/julianstephens/studylit/internal/tui/components/tasktree"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

const maxTitleLength = 200

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == constants.StateAddTask || m.state == constants.StateCredoForm {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// tabs, banner, help and padding
		h := max(msg.Height-7, 1)
		w := max(msg.Width-4, 1)
		m.tree.SetSize(w, h)
		m.weekModel.SetSize(w, h)
		return m, nil

	case tickMsg:
		m.tree.SetNow(time.Time(msg))
		return m, tick()

	case tasktree.StatusMsg:
		m.changeStatus(msg.ID, msg.Status)
		return m, nil

	case tasktree.AddMsg:
		return m, m.openTaskForm(msg.ParentID)

	case tasktree.DeleteMsg:
		m.deleteID = msg.ID
		m.deleteTitle = msg.Title
		m.previousState = m.state
		m.state = constants.StateConfirmDelete
		return m, nil

	case credo.EditMsg:
		return m, m.openCredoForm()

	case tea.KeyMsg:
		if m.state == constants.StateConfirmDelete {
			return m.updateConfirmDelete(msg)
		}
		if handled, cmd := m.handleGlobalKeys(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateTasks:
		m.tree, cmd = m.tree.Update(msg)
	case constants.StateWeek:
		m.weekModel, cmd = m.weekModel.Update(msg)
	case constants.StateCredo:
		m.credoModel, cmd = m.credoModel.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return true, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return true, nil
	case key.Matches(msg, m.keys.Tab):
		m.state = (m.state + 1) % tabCount
		m.statusErr = ""
		return true, nil
	case key.Matches(msg, m.keys.ShiftTab):
		m.state = (m.state + tabCount - 1) % tabCount
		m.statusErr = ""
		return true, nil
	}

	if m.state == constants.StateWeek {
		switch {
		case key.Matches(msg, m.keys.PrevWeek):
			m.window = m.window.Previous()
		case key.Matches(msg, m.keys.NextWeek):
			m.window = weekly.Window{Start: m.window.Until()}
		default:
			return false, nil
		}
		if err := m.loadWeek(context.Background()); err != nil {
			m.fail("load week", err)
		}
		return true, nil
	}
	return false, nil
}

func (m *Model) changeStatus(id string, status models.TaskStatus) {
	_, err := m.store.ChangeTaskStatus(context.Background(), m.user.ID, id, status, m.now())
	if err != nil {
		m.fail("update task", err)
		return
	}
	m.statusErr = ""
	m.refresh()
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		if err := m.store.DeleteTask(context.Background(), m.user.ID, m.deleteID); err != nil {
			m.fail("delete task", err)
		} else {
			m.statusErr = ""
		}
		m.deleteID, m.deleteTitle = "", ""
		m.state = m.previousState
		m.refresh()
	case key.Matches(msg, m.keys.Cancel):
		m.deleteID, m.deleteTitle = "", ""
		m.state = m.previousState
	}
	return m, nil
}

func (m *Model) openTaskForm(parentID string) tea.Cmd {
	m.addParentID = parentID
	m.taskForm = &TaskFormModel{}
	m.previousState = m.state
	m.state = constants.StateAddTask

	title := "New task"
	if parentID != "" {
		if sel, ok := m.tree.Selected(); ok {
			title = "New subtask of " + sel.Title
		}
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&m.taskForm.Title).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return errors.New("title is required")
					}
					if len(s) > maxTitleLength {
						return errors.New("title is too long")
					}
					return nil
				}),
			huh.NewInput().
				Title("Due (YYYY-MM-DD, optional)").
				Value(&m.taskForm.Due).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := utils.ParseDue(s)
					return err
				}),
		),
	).WithShowHelp(true)
	return m.form.Init()
}

func (m *Model) openCredoForm() tea.Cmd {
	m.credoForm = &CredoFormModel{Done: m.credoModel.DoneItems()}
	m.previousState = m.state
	m.state = constants.StateCredoForm

	options := make([]huh.Option[string], len(models.CredoItems))
	for i, item := range models.CredoItems {
		options[i] = huh.NewOption(item.Label, item.ID)
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("What did you practice on " + m.credoModel.Day + "?").
				Options(options...).
				Value(&m.credoForm.Done),
		),
	).WithShowHelp(true)
	return m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		var err error
		if m.state == constants.StateAddTask {
			err = m.saveTask(*m.taskForm)
		} else {
			err = m.saveCredo(m.credoForm.Done)
		}
		if err != nil {
			m.fail("save", err)
		} else {
			m.statusErr = ""
		}
		m.state = m.previousState
		m.refresh()
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, cmd
}

func (m Model) saveTask(f TaskFormModel) error {
	ctx := context.Background()
	now := m.now()

	var t models.Task
	if m.addParentID != "" {
		parent, err := m.store.GetTask(ctx, m.user.ID, m.addParentID)
		if err != nil {
			return err
		}
		t = tasks.NewSubtask(parent, f.Title, now)
	} else {
		t = tasks.New(m.user.ID, f.Title, now)
	}
	if strings.TrimSpace(f.Due) != "" {
		due, err := utils.ParseDue(f.Due)
		if err != nil {
			return err
		}
		t.Due = &due
	}
	return m.store.AddTask(ctx, t)
}

// saveCredo replaces today's logs with done marking exactly the given
// items. Notes on existing logs are kept.
func (m Model) saveCredo(done []string) error {
	day := m.credoModel.Day
	existing := m.credoModel.Logs()
	marked := make(map[string]bool, len(done))
	for _, id := range done {
		marked[id] = true
	}

	var logs []models.CredoLog
	for _, item := range models.CredoItems {
		prev, had := existing[item.ID]
		if !marked[item.ID] && (!had || prev.Note == "") {
			continue
		}
		l := models.CredoLog{
			ID:        uuid.New().String(),
			UserID:    m.user.ID,
			Item:      item.ID,
			Day:       day,
			Done:      marked[item.ID],
			Note:      prev.Note,
			CreatedAt: m.now().UTC(),
		}
		if had {
			l.CreatedAt = prev.CreatedAt
		}
		logs = append(logs, l)
	}
	return m.store.ReplaceCredoDay(context.Background(), m.user.ID, day, logs, m.now())
}
