package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/notifier"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/weekly"
)

type ReportCmd struct {
	Generate ReportGenerateCmd `cmd:"" help:"Ask the coach for this week's report."`
	Show     ReportShowCmd     `cmd:"" help:"Show a saved weekly report." default:"1"`
	Share    ReportShareCmd    `cmd:"" help:"Send a saved report to the supporter webhook."`
}

type ReportGenerateCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week (YYYY-MM-DD). Defaults to today."`
}

func (c *ReportGenerateCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	ref, err := reference(ctx, c.Date)
	if err != nil {
		return err
	}

	r, err := ctx.Reports().Generate(bg, user.ID, ref)
	if errors.Is(err, llm.ErrNoAPIKey) {
		return fmt.Errorf("%w: set %sLLM_API_KEY or run 'studylit keyring set %s'",
			err, constants.EnvPrefix, constants.KeyringLLMAPIKey)
	}
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	printReport(ctx, r)
	return nil
}

type ReportShowCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week (YYYY-MM-DD). Defaults to today."`
	JSON bool   `help:"Print the report as JSON."`
}

func (c *ReportShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	ref, err := reference(ctx, c.Date)
	if err != nil {
		return err
	}

	r, err := ctx.Reports().Get(bg, user.ID, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return missingReport(ref)
	}
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	if c.JSON {
		return ctx.PrintJSON(r)
	}
	printReport(ctx, r)
	return nil
}

type ReportShareCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week (YYYY-MM-DD). Defaults to today."`
}

func (c *ReportShareCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	ref, err := reference(ctx, c.Date)
	if err != nil {
		return err
	}

	r, err := ctx.Reports().Share(bg, user.ID, ref)
	switch {
	case errors.Is(err, notifier.ErrNotConfigured):
		return fmt.Errorf("%w: set supporter.webhookURL in the config file", err)
	case errors.Is(err, storage.ErrNotFound):
		return missingReport(ref)
	case err != nil:
		return err
	}
	ctx.Printf("✓ Shared the report for the week of %s\n", r.WeekStart)
	return nil
}

func missingReport(ref time.Time) error {
	return fmt.Errorf("no report for the week of %s, run 'studylit report generate' first",
		weekly.WeekWindow(ref).StartDay())
}

func printReport(ctx *cli.Context, r models.WeeklyReport) {
	ctx.Printf("Weekly report for %s\n\n", r.WeekStart)
	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		ctx.Printf("%s\n  %s\n\n", title, body)
	}
	section("Condition", r.ConditionSummary)
	section("Activity", r.ActivitySummary)
	section("Analysis", r.Analysis)
	if len(r.NextFocus) > 0 {
		ctx.Println("Next focus")
		for _, f := range r.NextFocus {
			ctx.Printf("  - %s\n", f)
		}
		ctx.Println()
	}
	ctx.Println("Supporter message")
	ctx.Println(r.SupporterText)
}
