package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/pkg/iojson"
)

type SessionCmd struct {
	flags *Flags
	app   *prism.App

	jsonOutput bool
	force      bool
}

// NewSessionCmd creates a new session command.
func NewSessionCmd(flags *Flags, app *prism.App) *SessionCmd {
	return &SessionCmd{flags: flags, app: app}
}

// Register adds the session command and its subcommands to the application.
func (cmd *SessionCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "session",
		Usage:     "Inspect or reset the active review session",
		UsageText: "prism session <subcommand>",
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show the active session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runInfo,
			},
			{
				Name:  "reset",
				Usage: "Discard the active session on the service and locally",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.force,
					},
				},
				Action: cmd.runReset,
			},
			{
				Name:  "delete-document",
				Usage: "Delete the uploaded document from the service and end the session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.force,
					},
				},
				Action: cmd.runDeleteDocument,
			},
		},
	})
	return app
}

func (cmd *SessionCmd) runInfo(ctx context.Context, c *cli.Command) error {
	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session")
		}
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, os.Stderr, session)
	}

	stats := cmd.app.Review.Statistics()
	customs := len(cmd.app.Review.CustomFeedback())

	w := tabwriter.NewWriter(c.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Session:\t%s\n", session.ID)
	fmt.Fprintf(w, "Document:\t%s\n", session.DocumentName)
	fmt.Fprintf(w, "Sections:\t%d\n", len(session.Sections))
	if session.ValidIndex(session.CurrentIndex) {
		fmt.Fprintf(w, "Current:\t%s (%d/%d)\n", session.CurrentSection(), session.CurrentIndex+1, len(session.Sections))
	}
	fmt.Fprintf(w, "Guidelines:\t%v\n", session.GuidelinesUploaded)
	fmt.Fprintf(w, "Started:\t%s\n", session.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Feedback:\t%d accepted, %d rejected, %d pending, %d custom\n",
		stats.Accepted, stats.Rejected, stats.Pending, customs)
	if err := w.Flush(); err != nil {
		return err
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out)
	for i, section := range session.Sections {
		marker := "  "
		if i == session.CurrentIndex {
			marker = styles.TextPrimaryBoldStyle.Render("> ")
		}
		_, _ = fmt.Fprintf(out, "%s%2d. %s\n", marker, i+1, section)
	}
	return nil
}

func (cmd *SessionCmd) runReset(ctx context.Context, c *cli.Command) error {
	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session to reset")
		}
		return err
	}

	if !cmd.force {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Reset session for %q?", session.DocumentName)).
			Description("All feedback decisions, comments, and highlights will be discarded.").
			Value(&confirmed).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if err := cmd.app.Review.ResetSession(ctx); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("Session reset"))
	return nil
}

func (cmd *SessionCmd) runDeleteDocument(ctx context.Context, c *cli.Command) error {
	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session")
		}
		return err
	}

	if !cmd.force {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q from the service?", session.DocumentName)).
			Description("The document and all review state will be removed.").
			Value(&confirmed).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if err := cmd.app.Review.DeleteDocument(ctx); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("Document deleted"))
	return nil
}
