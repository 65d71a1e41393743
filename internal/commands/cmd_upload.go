package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
)

type UploadCmd struct {
	flags *Flags
	app   *prism.App

	// flags
	document   string
	guidelines string
	preference string
}

// NewUploadCmd creates a new upload command.
func NewUploadCmd(flags *Flags, app *prism.App) *UploadCmd {
	return &UploadCmd{flags: flags, app: app}
}

// Register adds the upload command to the application.
func (cmd *UploadCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "upload",
		Usage:     "Upload a document and start a review session",
		UsageText: "prism upload [options] [document.docx]",
		Description: `Uploads a .docx document to the review service and starts a new session.

When no document is given, candidate files are discovered with the configured
glob patterns and an interactive picker is shown. Starting a new session
replaces any previous one.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "guidelines",
				Aliases:     []string{"g"},
				Usage:       "optional guidelines .docx to upload alongside the document",
				Destination: &cmd.guidelines,
			},
			&cli.StringFlag{
				Name:        "preference",
				Aliases:     []string{"p"},
				Usage:       "guidelines preference (both, new_only, old_only)",
				Destination: &cmd.preference,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *UploadCmd) run(ctx context.Context, c *cli.Command) error {
	cmd.document = c.Args().First()

	if cmd.document == "" {
		if err := cmd.runForm(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}
	if cmd.document == "" {
		return errors.New("no document selected")
	}

	if cmd.preference == "" {
		cmd.preference = cmd.app.Config.Upload.GuidelinesPreference
	}

	session, err := cmd.app.Review.StartSession(ctx, api.UploadRequest{
		DocumentPath:         cmd.document,
		GuidelinesPath:       cmd.guidelines,
		GuidelinesPreference: cmd.preference,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, styles.TextSuccessStyle.Render("Session started"))
	_, _ = fmt.Fprintf(out, "Document:  %s\n", session.DocumentName)
	_, _ = fmt.Fprintf(out, "Sections:  %d\n", len(session.Sections))
	if session.GuidelinesUploaded {
		_, _ = fmt.Fprintf(out, "Guidelines: uploaded (%s)\n", cmd.preference)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, styles.TextMutedStyle.Render("Run 'prism review' to start reviewing"))
	return nil
}

// discoverDocuments finds candidate documents using the configured globs.
func (cmd *UploadCmd) discoverDocuments() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var found []string
	for _, pattern := range cmd.app.Config.Upload.DocumentGlobs {
		matches, err := doublestar.Glob(os.DirFS(cwd), pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			found = append(found, m)
		}
	}
	sort.Strings(found)
	return found, nil
}

func (cmd *UploadCmd) runForm() error {
	docs, err := cmd.discoverDocuments()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents matching %s found; pass a path explicitly",
			strings.Join(cmd.app.Config.Upload.DocumentGlobs, ", "))
	}

	options := make([]huh.Option[string], 0, len(docs))
	for _, doc := range docs {
		options = append(options, huh.NewOption(filepath.ToSlash(doc), doc))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Document").
				Description("Pick the .docx to review").
				Options(options...).
				Value(&cmd.document),
			huh.NewInput().
				Title("Guidelines (optional)").
				Description("Path to a guidelines .docx, empty to skip").
				Value(&cmd.guidelines),
			huh.NewSelect[string]().
				Title("Guidelines preference").
				Options(
					huh.NewOption("Use both", "both"),
					huh.NewOption("New guidelines only", "new_only"),
					huh.NewOption("Existing guidelines only", "old_only"),
				).
				Value(&cmd.preference),
		),
	).Run()
}
