package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/pkg/iojson"
)

type HighlightCmd struct {
	flags *Flags
	app   *prism.App

	jsonOutput bool
	color      string
	force      bool
}

// NewHighlightCmd creates a new highlight command.
func NewHighlightCmd(flags *Flags, app *prism.App) *HighlightCmd {
	return &HighlightCmd{flags: flags, app: app}
}

// Register adds the highlight command and its subcommands to the application.
func (cmd *HighlightCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "highlight",
		Usage:     "Mark up passages of the current section",
		UsageText: "prism highlight <subcommand>",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List highlights in the current section",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "add",
				Usage:     "Highlight a passage by offset and length",
				UsageText: "prism highlight add [--color <color>] <start> <length>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "color",
						Aliases:     []string{"c"},
						Usage:       "highlight color (yellow, green, blue, red, gray)",
						Destination: &cmd.color,
					},
				},
				Action: cmd.runAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a highlight and any comments anchored to it",
				UsageText: "prism highlight remove <highlight-id>",
				Action:    cmd.runRemove,
			},
			{
				Name:      "recolor",
				Usage:     "Change the color of a highlight",
				UsageText: "prism highlight recolor <highlight-id> <color>",
				Action:    cmd.runRecolor,
			},
			{
				Name:  "clear",
				Usage: "Remove every highlight in the current section",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.force,
					},
				},
				Action: cmd.runClear,
			},
		},
	})
	return app
}

func (cmd *HighlightCmd) currentSection() (string, error) {
	record, ok := cmd.app.Review.CurrentSection()
	if !ok {
		if !cmd.app.Review.HasSession() {
			return "", errors.New("no active session; run 'prism upload' first")
		}
		return "", errors.New("no section loaded; run 'prism review' and open a section first")
	}
	return record.Name, nil
}

// pickColor resolves the --color flag, falling back to the configured
// default when the flag is absent.
func (cmd *HighlightCmd) pickColor() (highlight.Color, error) {
	raw := cmd.color
	if raw == "" {
		raw = cmd.app.Config.TUI.HighlightColor
	}
	color := highlight.Color(raw)
	if !color.Valid() {
		return "", fmt.Errorf("unknown color %q (choose one of %v)", raw, highlight.Colors())
	}
	return color, nil
}

func (cmd *HighlightCmd) runList(ctx context.Context, c *cli.Command) error {
	section, err := cmd.currentSection()
	if err != nil {
		return err
	}
	spans, err := cmd.app.Review.Highlights(ctx, section)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		out := struct {
			Section    string           `json:"section"`
			Highlights []highlight.Span `json:"highlights"`
		}{section, spans}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, out)
	}

	out := c.Root().Writer
	if len(spans) == 0 {
		_, _ = fmt.Fprintf(out, "no highlights in %q\n", section)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRANGE\tCOLOR\tTEXT")
	for _, span := range spans {
		fmt.Fprintf(w, "%s\t%d-%d\t%s\t%s\n",
			span.ID,
			span.Start,
			span.End(),
			span.Color,
			truncateLine(span.Text, 50),
		)
	}
	return w.Flush()
}

func (cmd *HighlightCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return errors.New("usage: prism highlight add <start> <length>")
	}
	start, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("start offset: %w", err)
	}
	length, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("length: %w", err)
	}

	color, err := cmd.pickColor()
	if err != nil {
		return err
	}
	section, err := cmd.currentSection()
	if err != nil {
		return err
	}

	span, err := cmd.app.Review.AddHighlight(ctx, section, start, length, color)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render(
		fmt.Sprintf("highlighted %q (%s)", truncateLine(span.Text, 50), span.ID)))
	return nil
}

func (cmd *HighlightCmd) runRemove(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("highlight id required")
	}
	section, err := cmd.currentSection()
	if err != nil {
		return err
	}

	removed, err := cmd.app.Review.RemoveHighlight(ctx, section, id)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, styles.TextSuccessStyle.Render("highlight removed: "+id))
	if len(removed) > 0 {
		_, _ = fmt.Fprintf(out, "also removed %d anchored comment(s)\n", len(removed))
	}
	return nil
}

func (cmd *HighlightCmd) runRecolor(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return errors.New("usage: prism highlight recolor <highlight-id> <color>")
	}
	id := c.Args().Get(0)
	color := highlight.Color(c.Args().Get(1))
	if !color.Valid() {
		return fmt.Errorf("unknown color %q (choose one of %v)", c.Args().Get(1), highlight.Colors())
	}
	section, err := cmd.currentSection()
	if err != nil {
		return err
	}

	if err := cmd.app.Review.RecolorHighlight(ctx, section, id, color); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("highlight recolored: "+id))
	return nil
}

func (cmd *HighlightCmd) runClear(ctx context.Context, c *cli.Command) error {
	section, err := cmd.currentSection()
	if err != nil {
		return err
	}

	if !cmd.force {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Clear all highlights in %q?", section)).
			Description("Comments anchored to them will be removed as well.").
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

	if err := cmd.app.Review.ClearHighlights(ctx, section); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("highlights cleared in "+section))
	return nil
}
