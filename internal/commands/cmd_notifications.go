package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/core/notify"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/pkg/iojson"
)

type NotificationsCmd struct {
	flags *Flags
	app   *prism.App

	jsonOutput bool
}

// NewNotificationsCmd creates a new notifications command.
func NewNotificationsCmd(flags *Flags, app *prism.App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications command to the application.
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "notifications",
		Usage:     "Show notification history from past review activity",
		UsageText: "prism notifications [options]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Delete all stored notifications",
				Action: cmd.runClear,
			},
		},
	})
	return app
}

func (cmd *NotificationsCmd) run(ctx context.Context, c *cli.Command) error {
	items, err := cmd.app.Notifications.List(ctx)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, os.Stderr, items)
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(c.Root().Writer, styles.TextMutedStyle.Render("no notifications"))
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 4, 2, ' ', 0)
	for _, n := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
			levelStyle(n.Level).Render(string(n.Level)),
			n.Message,
		)
	}
	return w.Flush()
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Notifications.Clear(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("notifications cleared"))
	return nil
}

func levelStyle(level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelError:
		return styles.TextErrorStyle
	case notify.LevelWarning:
		return styles.TextWarningStyle
	case notify.LevelSuccess:
		return styles.TextSuccessStyle
	default:
		return styles.TextMutedStyle
	}
}
