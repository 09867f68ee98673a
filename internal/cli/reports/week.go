package reports

import (
	"context"
	"time"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/report"
	"github.com/julianstephens/studylit/internal/tui/components/week"
)

type WeekCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week (YYYY-MM-DD). Defaults to today."`
	JSON bool   `help:"Print the summary as JSON."`
}

func (c *WeekCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	ref, err := reference(ctx, c.Date)
	if err != nil {
		return err
	}

	w, err := ctx.Reports().Week(bg, user.ID, ref)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(w)
	}
	ctx.Println(week.Render(w.Window, w.Tasks, w.Credo))
	return nil
}

// reference resolves a YYYY-MM-DD argument, defaulting to today in the
// configured timezone.
func reference(ctx *cli.Context, day string) (time.Time, error) {
	if day == "" {
		day = ctx.Today()
	}
	return report.ParseRef(day, ctx.Clock())
}
