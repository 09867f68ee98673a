package system

import (
	"fmt"

	"github.com/julianstephens/studylit/internal/cli"
)

type MigrateCmd struct {
	DryRun bool `help:"Only report how many migrations are pending."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("migrate is not supported for %s storage", ctx.Store.Driver())
	}
	runner, err := m.Runner()
	if err != nil {
		return err
	}

	if c.DryRun {
		pending, err := runner.Pending()
		if err != nil {
			return fmt.Errorf("failed to inspect migrations: %w", err)
		}
		ctx.Printf("%d migration(s) pending.\n", pending)
		return nil
	}

	count, err := runner.ApplyMigrations(func(msg string) {
		ctx.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
