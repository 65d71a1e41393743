package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/internal/tui"
)

type ReviewCmd struct {
	flags *Flags
	app   *prism.App

	section int
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags, app *prism.App) *ReviewCmd {
	return &ReviewCmd{flags: flags, app: app}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Open the interactive review interface",
		UsageText: "prism review [options]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "section",
				Aliases:     []string{"s"},
				Usage:       "jump to section index (1-based)",
				Destination: &cmd.section,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, _ *cli.Command) error {
	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session; run 'prism upload' first")
		}
		return err
	}

	if cmd.section > 0 {
		if _, err := cmd.app.Review.LoadSection(ctx, cmd.section-1); err != nil {
			return fmt.Errorf("load section %d: %w", cmd.section, err)
		}
		session, _ = cmd.app.Review.Session()
	}

	return tui.Run(cmd.app, session)
}
