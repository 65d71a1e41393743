package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/prism"
)

type ChatCmd struct {
	flags *Flags
	app   *prism.App
}

// NewChatCmd creates a new chat command.
func NewChatCmd(flags *Flags, app *prism.App) *ChatCmd {
	return &ChatCmd{flags: flags, app: app}
}

// Register adds the chat command to the application.
func (cmd *ChatCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "chat",
		Usage:     "Ask the review assistant about the current document",
		UsageText: "prism chat <message>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *ChatCmd) run(ctx context.Context, c *cli.Command) error {
	message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if message == "" {
		return errors.New("message required")
	}

	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session; run 'prism upload' first")
		}
		return err
	}

	reply, err := cmd.app.Client.Chat(ctx, session.ID, message)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, reply)
	return nil
}
