package credo

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/utils"
	"github.com/julianstephens/studylit/internal/weekly"
)

const maxNoteLength = 500

type CredoCmd struct {
	Log     CredoLogCmd     `cmd:"" help:"Mark credo items as practiced." default:"1"`
	Show    CredoShowCmd    `cmd:"" help:"Show one day's credo."`
	Summary CredoSummaryCmd `cmd:"" help:"Summarize the credo for a week."`
	Items   CredoItemsCmd   `cmd:"" help:"List credo item IDs."`
}

type CredoLogCmd struct {
	Items []string `arg:"" optional:"" help:"Credo item IDs. Prompts for a selection when omitted."`
	Day   string   `help:"Day to log (YYYY-MM-DD). Defaults to today."`
	Note  string   `short:"n" help:"Note stored on every given item."`
	Undo  bool     `help:"Mark the items as not practiced."`
}

func (c *CredoLogCmd) Validate() error {
	if c.Day != "" && !utils.ValidDay(c.Day) {
		return fmt.Errorf("invalid day %q (expected YYYY-MM-DD)", c.Day)
	}
	for _, id := range c.Items {
		if _, ok := models.LookupCredoItem(id); !ok {
			return fmt.Errorf("unknown credo item %q (see 'studylit credo items')", id)
		}
	}
	if len(c.Note) > maxNoteLength {
		return fmt.Errorf("note exceeds %d characters", maxNoteLength)
	}
	return nil
}

func (c *CredoLogCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	day := c.Day
	if day == "" {
		day = ctx.Today()
	}

	existing, err := ctx.Store.GetCredoLogs(bg, user.ID, day, day)
	if err != nil {
		return fmt.Errorf("failed to load credo logs: %w", err)
	}
	byItem := make(map[string]models.CredoLog, len(existing))
	for _, l := range existing {
		byItem[l.Item] = l
	}

	marks := make(map[string]bool)
	if len(c.Items) == 0 {
		selected, err := promptItems(day, existing)
		if err != nil {
			return err
		}
		for _, item := range models.CredoItems {
			marks[item.ID] = false
		}
		for _, id := range selected {
			marks[id] = true
		}
	} else {
		for _, id := range c.Items {
			marks[id] = !c.Undo
		}
	}

	now := ctx.Clock().UTC()
	note := strings.TrimSpace(c.Note)
	var logs []models.CredoLog
	for _, item := range models.CredoItems {
		prev, had := byItem[item.ID]
		done, touched := marks[item.ID]
		if !touched {
			if had {
				logs = append(logs, prev)
			}
			continue
		}

		l := prev
		if !had {
			l = models.CredoLog{ID: uuid.New().String(), UserID: user.ID, Item: item.ID, Day: day, CreatedAt: now}
		}
		l.Done = done
		if note != "" && len(c.Items) > 0 {
			l.Note = note
		}
		if !l.Done && l.Note == "" {
			continue
		}
		logs = append(logs, l)
	}

	if err := ctx.Store.ReplaceCredoDay(bg, user.ID, day, logs, now); err != nil {
		return fmt.Errorf("failed to save credo logs: %w", err)
	}

	practiced := 0
	for _, l := range logs {
		if l.Done {
			practiced++
		}
	}
	ctx.Printf("Credo for %s: %d of %d practiced\n", day, practiced, len(models.CredoItems))
	return nil
}

func promptItems(day string, existing []models.CredoLog) ([]string, error) {
	var selected []string
	for _, l := range existing {
		if l.Done {
			selected = append(selected, l.Item)
		}
	}
	options := make([]huh.Option[string], len(models.CredoItems))
	for i, item := range models.CredoItems {
		options[i] = huh.NewOption(item.Label, item.ID)
	}
	err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("What did you practice on " + day + "?").
			Options(options...).
			Value(&selected),
	)).Run()
	if err != nil {
		return nil, fmt.Errorf("credo prompt cancelled: %w", err)
	}
	return selected, nil
}

type CredoShowCmd struct {
	Day  string `arg:"" optional:"" help:"Day to show (YYYY-MM-DD). Defaults to today."`
	JSON bool   `help:"Print the logs as JSON."`
}

func (c *CredoShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	day := c.Day
	if day == "" {
		day = ctx.Today()
	}
	if !utils.ValidDay(day) {
		return fmt.Errorf("invalid day %q (expected YYYY-MM-DD)", day)
	}

	logs, err := ctx.Store.GetCredoLogs(bg, user.ID, day, day)
	if err != nil {
		return fmt.Errorf("failed to load credo logs: %w", err)
	}
	if c.JSON {
		if logs == nil {
			logs = []models.CredoLog{}
		}
		return ctx.PrintJSON(logs)
	}

	byItem := make(map[string]models.CredoLog, len(logs))
	done := 0
	for _, l := range logs {
		byItem[l.Item] = l
		if l.Done {
			done++
		}
	}
	ctx.Printf("Credo for %s: %d of %d\n", day, done, len(models.CredoItems))
	for _, item := range models.CredoItems {
		l := byItem[item.ID]
		mark := "○"
		if l.Done {
			mark = "✓"
		}
		ctx.Printf("  %s %-14s %s\n", mark, item.ID, item.Label)
		if l.Note != "" {
			ctx.Printf("      %s\n", l.Note)
		}
	}
	return nil
}

type CredoSummaryCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week (YYYY-MM-DD). Defaults to today."`
	JSON bool   `help:"Print the summary as JSON."`
}

func (c *CredoSummaryCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	day := c.Date
	if day == "" {
		day = ctx.Today()
	}
	window, err := weekly.ParseWeekRef(day)
	if err != nil {
		return err
	}

	logs, err := ctx.Store.GetCredoLogs(bg, user.ID, window.StartDay(), window.EndDay())
	if err != nil {
		return fmt.Errorf("failed to load credo logs: %w", err)
	}
	summary := weekly.SummarizeCredo(logs, window)
	if c.JSON {
		return ctx.PrintJSON(summary)
	}

	ctx.Printf("Credo %s to %s: %d%% practiced\n", window.StartDay(), window.EndDay(), summary.PracticedRate)
	for _, r := range summary.Ranking {
		ctx.Printf("  %-14s %d/7\n", r.Item, r.Count)
	}
	if len(summary.Missing) > 0 {
		ids := make([]string, len(summary.Missing))
		for i, m := range summary.Missing {
			ids[i] = m.Item
		}
		ctx.Printf("Not yet: %s\n", strings.Join(ids, ", "))
	}
	for _, h := range summary.Highlights {
		ctx.Printf("  %s\n", h)
	}
	return nil
}

type CredoItemsCmd struct{}

func (c *CredoItemsCmd) Run(ctx *cli.Context) error {
	for _, item := range models.CredoItems {
		ctx.Printf("%-14s %s\n", item.ID, item.Label)
	}
	return nil
}
