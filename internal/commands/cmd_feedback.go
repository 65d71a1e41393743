package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/pkg/iojson"
)

type FeedbackCmd struct {
	flags *Flags
	app   *prism.App

	jsonOutput bool
	section    string
	fbType     string
	category   string
	refID      string

	addReader  iojson.FileReader[prism.CustomFeedbackParams]
	editReader iojson.FileReader[review.CustomFeedbackItem]
}

// NewFeedbackCmd creates a new feedback command.
func NewFeedbackCmd(flags *Flags, app *prism.App) *FeedbackCmd {
	return &FeedbackCmd{flags: flags, app: app}
}

// Register adds the feedback command and its subcommands to the application.
func (cmd *FeedbackCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:        "json",
		Usage:       "output as JSON",
		Destination: &cmd.jsonOutput,
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:      "feedback",
		Usage:     "Work with feedback on the current section",
		UsageText: "prism feedback <subcommand>",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List AI feedback and your comments for the current section",
				Flags:  []cli.Flag{jsonFlag},
				Action: cmd.runList,
			},
			{
				Name:      "accept",
				Usage:     "Accept an AI feedback item",
				UsageText: "prism feedback accept <feedback-id>",
				Action:    cmd.action((*prism.Service).Accept, "accepted"),
			},
			{
				Name:      "reject",
				Usage:     "Reject an AI feedback item",
				UsageText: "prism feedback reject <feedback-id>",
				Action:    cmd.action((*prism.Service).Reject, "rejected"),
			},
			{
				Name:      "revert",
				Usage:     "Return an AI feedback item to pending",
				UsageText: "prism feedback revert <feedback-id>",
				Action:    cmd.action((*prism.Service).Revert, "reverted"),
			},
			{
				Name:   "revert-all",
				Usage:  "Return every feedback item in the session to pending",
				Action: cmd.runRevertAll,
			},
			{
				Name:      "add",
				Usage:     "Add a custom comment",
				UsageText: "prism feedback add [options] <description>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "section",
						Aliases:     []string{"s"},
						Usage:       "section name (defaults to the current section)",
						Destination: &cmd.section,
					},
					&cli.StringFlag{
						Name:        "type",
						Aliases:     []string{"t"},
						Usage:       "feedback type (suggestion, important, critical, positive, question, clarification)",
						Destination: &cmd.fbType,
					},
					&cli.StringFlag{
						Name:        "category",
						Aliases:     []string{"c"},
						Usage:       "free-form category label",
						Destination: &cmd.category,
					},
					&cli.StringFlag{
						Name:        "ref",
						Usage:       "id of the AI feedback item this comment refers to",
						Destination: &cmd.refID,
					},
					cmd.addReader.Flag(),
				},
				Action: cmd.runAdd,
			},
			{
				Name:      "edit",
				Usage:     "Replace a custom comment with JSON from a file or stdin",
				UsageText: "prism feedback edit -f item.json",
				Flags:     []cli.Flag{cmd.editReader.Flag()},
				Action:    cmd.runEdit,
			},
			{
				Name:      "delete",
				Usage:     "Delete a custom comment",
				UsageText: "prism feedback delete <comment-id>",
				Action:    cmd.runDelete,
			},
		},
	})
	return app
}

func (cmd *FeedbackCmd) currentRecord() (review.SectionRecord, error) {
	record, ok := cmd.app.Review.CurrentSection()
	if !ok {
		if !cmd.app.Review.HasSession() {
			return review.SectionRecord{}, errors.New("no active session; run 'prism upload' first")
		}
		return review.SectionRecord{}, errors.New("no section loaded; run 'prism review' and open a section first")
	}
	return record, nil
}

func (cmd *FeedbackCmd) runList(ctx context.Context, c *cli.Command) error {
	record, err := cmd.currentRecord()
	if err != nil {
		return err
	}
	customs := cmd.app.Review.CustomFeedbackFor(record.Name)

	if cmd.jsonOutput {
		out := struct {
			Section  string                      `json:"section"`
			Feedback []review.FeedbackItem       `json:"feedback_items"`
			Custom   []review.CustomFeedbackItem `json:"custom_feedback"`
		}{record.Name, record.Feedback, customs}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, out)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, styles.TextPrimaryBoldStyle.Render(record.Name))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTYPE\tRISK\tDESCRIPTION")
	for _, item := range record.Feedback {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.ID,
			styles.StatusStyle(item.Status).Render(string(item.Status)),
			item.Type,
			item.RiskLevel,
			truncateLine(item.Description, 60),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(customs) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, styles.TextForegroundBoldStyle.Render(fmt.Sprintf("Your comments (%d)", len(customs))))
		cw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, item := range customs {
			fmt.Fprintf(cw, "%s\t%s\t%s\n", item.ID, item.Type, truncateLine(item.Description, 70))
		}
		if err := cw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// action builds a cli action for the accept/reject/revert subcommands. The
// service method is resolved at call time because App is populated after
// command registration.
func (cmd *FeedbackCmd) action(fn func(*prism.Service, context.Context, string) (bool, error), verb string) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id := c.Args().First()
		if id == "" {
			return errors.New("feedback id required")
		}

		changed, err := fn(cmd.app.Review, ctx, id)
		if err != nil {
			return err
		}

		out := c.Root().Writer
		if !changed {
			_, _ = fmt.Fprintf(out, "%s already %s\n", id, verb)
			return nil
		}
		_, _ = fmt.Fprintln(out, styles.TextSuccessStyle.Render(fmt.Sprintf("%s %s", id, verb)))
		return nil
	}
}

func (cmd *FeedbackCmd) runRevertAll(ctx context.Context, c *cli.Command) error {
	reverted, err := cmd.app.Review.RevertAll(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "reverted %d feedback item(s) to pending\n", reverted)
	return nil
}

func (cmd *FeedbackCmd) runAdd(ctx context.Context, c *cli.Command) error {
	var params prism.CustomFeedbackParams

	if description := c.Args().First(); description != "" {
		params = prism.CustomFeedbackParams{
			Section:       cmd.section,
			Type:          review.FeedbackType(cmd.fbType),
			Category:      cmd.category,
			Description:   description,
			AIReferenceID: cmd.refID,
		}
	} else {
		var err error
		params, err = cmd.addReader.Read()
		if err != nil {
			return err
		}
	}

	if params.Section == "" {
		session, err := cmd.app.Review.Session()
		if err != nil {
			return err
		}
		params.Section = session.CurrentSection()
	}

	item, err := cmd.app.Review.AddCustomFeedback(ctx, params)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("comment added: "+item.ID))
	return nil
}

func (cmd *FeedbackCmd) runEdit(ctx context.Context, c *cli.Command) error {
	item, err := cmd.editReader.Read()
	if err != nil {
		return err
	}
	if item.ID == "" {
		return errors.New("item id required")
	}

	if err := cmd.app.Review.UpdateCustomFeedback(ctx, item); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("comment updated: "+item.ID))
	return nil
}

func (cmd *FeedbackCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("comment id required")
	}

	if err := cmd.app.Review.DeleteCustomFeedback(ctx, id); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, styles.TextSuccessStyle.Render("comment deleted: "+id))
	return nil
}

func truncateLine(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
