package coaching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/coach"
	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/llm"
	"github.com/julianstephens/studylit/internal/models"
)

type ChatCmd struct {
	Message []string `arg:"" optional:"" help:"Message for the coach. Prompts for one when omitted."`
	History bool     `help:"Print the stored conversation instead of sending a message."`
	Clear   bool     `help:"Delete the stored conversation."`
}

func (c *ChatCmd) Validate() error {
	if c.History && c.Clear {
		return errors.New("--history and --clear cannot be combined")
	}
	if (c.History || c.Clear) && len(c.Message) > 0 {
		return errors.New("a message cannot be combined with --history or --clear")
	}
	return nil
}

func (c *ChatCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}

	switch {
	case c.Clear:
		if err := ctx.Store.DeleteChatHistory(bg, user.ID); err != nil {
			return fmt.Errorf("failed to delete chat history: %w", err)
		}
		ctx.Println("✓ Chat history deleted")
		return nil
	case c.History:
		messages, err := ctx.Store.GetChatHistory(bg, user.ID, ctx.Config.Chat.Retention)
		if err != nil {
			return fmt.Errorf("failed to load chat history: %w", err)
		}
		if len(messages) == 0 {
			ctx.Println("No messages yet")
			return nil
		}
		for _, m := range messages {
			printMessage(ctx, m)
		}
		return nil
	}

	co := ctx.Coach()
	if co == nil {
		return noLLM()
	}

	message := strings.Join(c.Message, " ")
	if strings.TrimSpace(message) == "" {
		err := huh.NewForm(huh.NewGroup(
			huh.NewText().Title("Message for your coach").Value(&message),
		)).Run()
		if err != nil {
			return fmt.Errorf("chat prompt cancelled: %w", err)
		}
	}

	reply, err := co.Chat(bg, user.ID, message)
	if err != nil {
		return err
	}
	ctx.Println(reply.Reply)
	return nil
}

func printMessage(ctx *cli.Context, m models.ChatMessage) {
	who := "you"
	if m.Role == models.RoleAssistant {
		who = "coach"
	}
	ctx.Printf("[%s] %s: %s\n", m.CreatedAt.In(ctx.Location()).Format("2006-01-02 15:04"), who, m.Content)
}

func noLLM() error {
	return fmt.Errorf("%w: set %sLLM_API_KEY or run 'studylit keyring set %s'",
		llm.ErrNoAPIKey, constants.EnvPrefix, constants.KeyringLLMAPIKey)
}

type PlanCmd struct {
	Goal []string `arg:"" help:"What you want to achieve."`
	Days int      `short:"d" help:"Days available." default:"7"`
}

func (c *PlanCmd) Validate() error {
	if c.Days < 1 || c.Days > coach.MaxPlanDays {
		return coach.ErrInvalidDays
	}
	return nil
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	user, err := ctx.ResolveUser(bg)
	if err != nil {
		return err
	}
	co := ctx.Coach()
	if co == nil {
		return noLLM()
	}

	planned, err := co.Plan(bg, user.ID, strings.Join(c.Goal, " "), c.Days)
	if err != nil {
		return err
	}

	ctx.Printf("Added %d tasks:\n", len(planned))
	for _, t := range planned {
		indent := "  "
		if t.HasParent() {
			indent = "    "
		}
		line := indent + t.Title
		if t.Due != nil {
			line += " (due " + t.Due.UTC().Format(constants.DateFormat) + ")"
		}
		ctx.Println(line)
	}
	return nil
}
