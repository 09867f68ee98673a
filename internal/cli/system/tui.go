package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup(bg)

	model := tui.NewModel(ctx.Store, user, tui.Options{
		Location: ctx.Location(),
		Now:      ctx.Clock,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui exited with an error: %w", err)
	}
	return nil
}
