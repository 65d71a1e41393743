package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
)

type CompleteCmd struct {
	flags *Flags
	app   *prism.App

	output string
	s3     bool
	force  bool
}

// NewCompleteCmd creates a new complete command.
func NewCompleteCmd(flags *Flags, app *prism.App) *CompleteCmd {
	return &CompleteCmd{flags: flags, app: app}
}

// Register adds the complete command to the application.
func (cmd *CompleteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "complete",
		Usage:     "Generate the final annotated document",
		UsageText: "prism complete [options]",
		Description: `Asks the service to generate the final document containing all accepted and
custom feedback. Fails when nothing has been accepted and no comments exist.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "download the final document to this path",
				Destination: &cmd.output,
			},
			&cli.BoolFlag{
				Name:        "s3",
				Usage:       "also export the review artifacts to the configured S3 bucket",
				Destination: &cmd.s3,
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *CompleteCmd) run(ctx context.Context, c *cli.Command) error {
	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session; run 'prism upload' first")
		}
		return err
	}

	if !cmd.force {
		stats := cmd.app.Review.Statistics()
		customs := len(cmd.app.Review.CustomFeedback())
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Complete review of %q?", session.DocumentName)).
			Description(fmt.Sprintf("%d accepted item(s) and %d comment(s) will be written into the final document.",
				stats.Accepted, customs)).
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

	result, err := cmd.app.Review.CompleteReview(ctx)
	if err != nil {
		if errors.Is(err, prism.ErrNothingAccepted) {
			return errors.New("nothing to include: accept some feedback or add comments first")
		}
		return fmt.Errorf("complete review: %w", err)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, styles.TextSuccessStyle.Render("Final document generated"))
	_, _ = fmt.Fprintf(out, "Filename:  %s\n", result.Filename)
	_, _ = fmt.Fprintf(out, "Accepted:  %d item(s)\n", result.AcceptedCount)
	_, _ = fmt.Fprintf(out, "Download:  %s%s\n", cmd.app.Client.BaseURL(), result.DownloadURL)

	if cmd.output != "" {
		if err := cmd.app.Client.Download(ctx, result.DownloadURL, session.ID, "", cmd.output); err != nil {
			return fmt.Errorf("download final document: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Saved to:  %s\n", cmd.output)
	}

	if cmd.s3 {
		export, err := cmd.app.Client.ExportToS3(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("export to s3: %w", err)
		}
		_, _ = fmt.Fprintf(out, "S3 export: s3://%s/%s\n", export.Bucket, export.Key)
	}

	return nil
}
