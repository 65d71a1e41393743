package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/commands"
	"github.com/colonyops/prism/internal/core/config"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/data/db"
	"github.com/colonyops/prism/internal/data/stores"
	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/internal/tui"
	"github.com/colonyops/prism/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		prismApp  = &prism.App{}
		database  *db.DB
		serverURL string
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "prism",
		Usage:     "Review documents with AI-generated feedback",
		UsageText: "prism [global options] command [command options]",
		Description: `Prism is the terminal client for the AI-Prism review service.

Upload a .docx document, step through its sections, accept or reject the
AI feedback on each one, add your own comments and highlights, and generate
the final annotated document.

Run 'prism upload' to start a session, then 'prism' or 'prism review' to
open the interactive review interface.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("PRISM_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/prism.log)",
				Sources:     cli.EnvVars("PRISM_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("PRISM_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("PRISM_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "server",
				Usage:       "review service base URL (overrides config)",
				Sources:     cli.EnvVars("PRISM_SERVER"),
				Destination: &serverURL,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/prism.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "prism.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if serverURL != "" {
				cfg.Server.URL = serverURL
			}

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.TUI.Theme)
			styles.SetTheme(palette)

			database, err = db.Open(cfg.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			sessionStore := stores.NewSessionStore(database)
			feedbackStore := stores.NewFeedbackStore(database)
			highlightStore := stores.NewHighlightStore(database)

			client := api.New(cfg.Server.URL, log.With().Str("component", "api").Logger(), api.Options{
				Timeout:         cfg.Server.Timeout(),
				ExtendedTimeout: cfg.Server.AnalysisTimeout(),
			})

			svc := prism.NewService(
				cfg,
				client,
				sessionStore,
				feedbackStore,
				highlightStore,
				log.With().Str("component", "review").Logger(),
			)

			if err := svc.Restore(ctx); err != nil {
				return ctx, fmt.Errorf("restore session: %w", err)
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*prismApp = *prism.NewApp(svc, client, cfg, database)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewUploadCmd(flags, prismApp).Register(app)
	app = commands.NewReviewCmd(flags, prismApp).Register(app)
	app = commands.NewSessionCmd(flags, prismApp).Register(app)
	app = commands.NewFeedbackCmd(flags, prismApp).Register(app)
	app = commands.NewHighlightCmd(flags, prismApp).Register(app)
	app = commands.NewChatCmd(flags, prismApp).Register(app)
	app = commands.NewRateCmd(flags, prismApp).Register(app)
	app = commands.NewStatsCmd(flags, prismApp).Register(app)
	app = commands.NewCompleteCmd(flags, prismApp).Register(app)
	app = commands.NewNotificationsCmd(flags, prismApp).Register(app)
	app = commands.NewDoctorCmd(flags, prismApp).Register(app)

	// Open the review interface when no subcommand is provided.
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'prism --help' for usage", c.Args().First())
		}

		session, err := prismApp.Review.Session()
		if err != nil {
			if errors.Is(err, prism.ErrNoActiveSession) {
				return errors.New("no active session. Run 'prism upload' to start one")
			}
			return err
		}
		return tui.Run(prismApp, session)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
