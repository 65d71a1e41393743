package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
)

type RateCmd struct {
	flags *Flags
	app   *prism.App

	rating int
}

// NewRateCmd creates a new rate command.
func NewRateCmd(flags *Flags, app *prism.App) *RateCmd {
	return &RateCmd{flags: flags, app: app}
}

// Register adds the rate command to the application.
func (cmd *RateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rate",
		Usage:     "Rate the review tool itself",
		UsageText: "prism rate [--rating <1-5>] [comments]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "rating",
				Aliases:     []string{"r"},
				Usage:       "rating from 1 (poor) to 5 (excellent)",
				Destination: &cmd.rating,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *RateCmd) run(ctx context.Context, c *cli.Command) error {
	rating := cmd.rating
	comments := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))

	if rating == 0 {
		var err error
		rating, comments, err = cmd.ask()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if rating == 0 {
			return nil
		}
	}

	if !validRating(rating) {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}

	if err := cmd.app.Client.SubmitToolFeedback(ctx, rating, comments); err != nil {
		return fmt.Errorf("submit rating: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("Thanks for the feedback"))
	return nil
}

func (cmd *RateCmd) ask() (int, string, error) {
	var rating int
	var comments string

	options := make([]huh.Option[int], 0, 5)
	labels := []string{"1 - poor", "2 - below average", "3 - okay", "4 - good", "5 - excellent"}
	for i, label := range labels {
		options = append(options, huh.NewOption(label, i+1))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("How is the review tool working for you?").
				Options(options...).
				Value(&rating),
			huh.NewText().
				Title("Comments").
				Description("Optional; what should improve?").
				Value(&comments),
		),
	)
	if err := form.Run(); err != nil {
		return 0, "", err
	}
	return rating, strings.TrimSpace(comments), nil
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}
