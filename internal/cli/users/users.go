package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/storage"
)

type UserCmd struct {
	Add  UserAddCmd  `cmd:"" help:"Create an account."`
	List UserListCmd `cmd:"" help:"List accounts." default:"1"`
}

type UserAddCmd struct {
	Email    string `arg:"" help:"Login email."`
	Name     string `short:"n" help:"Display name. Defaults to the part of the email before @."`
	Password string `env:"STUDYLIT_PASSWORD" help:"Password. Prompts for one when omitted."`
}

func (c *UserAddCmd) Run(ctx *cli.Context) error {
	password := c.Password
	if password == "" {
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Password for " + c.Email).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if len(s) < auth.MinPasswordLength {
						return auth.ErrWeakPassword
					}
					return nil
				}).
				Value(&password),
		)).Run()
		if err != nil {
			return fmt.Errorf("password prompt cancelled: %w", err)
		}
	}

	user, err := auth.NewUser(c.Email, password, c.Name, ctx.Clock())
	if err != nil {
		return err
	}
	if err := ctx.Store.AddUser(context.Background(), user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("failed to add user: %w", err)
	}

	ctx.Printf("✓ Created user %s (%s)\n", user.Email, user.DisplayName)
	return nil
}

type UserListCmd struct {
	JSON bool `help:"Print users as JSON."`
}

func (c *UserListCmd) Run(ctx *cli.Context) error {
	list, err := ctx.Store.GetAllUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if c.JSON {
		return ctx.PrintJSON(list)
	}
	if len(list) == 0 {
		ctx.Println("No users found. Create one with 'studylit user add <email>'")
		return nil
	}
	for _, u := range list {
		ctx.Printf("  %s  %s  (since %s)\n", u.Email, u.DisplayName, u.CreatedAt.In(ctx.Location()).Format("2006-01-02"))
	}
	return nil
}
