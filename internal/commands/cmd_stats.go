package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
	"github.com/colonyops/prism/pkg/iojson"
)

type StatsCmd struct {
	flags *Flags
	app   *prism.App

	jsonOutput bool
	breakdown  bool
	patterns   bool
	learning   bool
	dashboard  bool
}

// NewStatsCmd creates a new stats command.
func NewStatsCmd(flags *Flags, app *prism.App) *StatsCmd {
	return &StatsCmd{flags: flags, app: app}
}

// Register adds the stats command to the application.
func (cmd *StatsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "stats",
		Usage:     "Show review statistics for the active session",
		UsageText: "prism stats [options]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "breakdown",
				Aliases:     []string{"b"},
				Usage:       "include a per-section breakdown",
				Destination: &cmd.breakdown,
			},
			&cli.BoolFlag{
				Name:        "patterns",
				Aliases:     []string{"p"},
				Usage:       "include acceptance patterns by type and risk",
				Destination: &cmd.patterns,
			},
			&cli.BoolFlag{
				Name:        "learning",
				Aliases:     []string{"l"},
				Usage:       "include learning insights derived from your decisions",
				Destination: &cmd.learning,
			},
			&cli.BoolFlag{
				Name:        "dashboard",
				Usage:       "show service-wide dashboard data instead of session stats",
				Destination: &cmd.dashboard,
			},
		},
		Action: cmd.run,
	})
	return app
}

// fetch runs fn with the configured transient-failure retry. Stats reads
// have no side effects so repeating them is safe.
func (cmd *StatsCmd) fetch(ctx context.Context, fn func(ctx context.Context) error) error {
	retry := cmd.app.Config.Retry
	return api.Retry(ctx, retry.Attempts, retry.Delay(), fn)
}

func (cmd *StatsCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.dashboard {
		return cmd.runDashboard(ctx, c)
	}

	session, err := cmd.app.Review.Session()
	if err != nil {
		if errors.Is(err, prism.ErrNoActiveSession) {
			return errors.New("no active session; run 'prism upload' first")
		}
		return err
	}

	var stats api.Statistics
	err = cmd.fetch(ctx, func(ctx context.Context) error {
		var err error
		stats, err = cmd.app.Client.GetStatistics(ctx, session.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}

	var breakdown api.StatisticsBreakdown
	if cmd.breakdown {
		err = cmd.fetch(ctx, func(ctx context.Context) error {
			var err error
			breakdown, err = cmd.app.Client.GetStatisticsBreakdown(ctx, session.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("get breakdown: %w", err)
		}
	}

	var patterns api.Patterns
	if cmd.patterns {
		err = cmd.fetch(ctx, func(ctx context.Context) error {
			var err error
			patterns, err = cmd.app.Client.GetPatterns(ctx, session.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("get patterns: %w", err)
		}
	}

	var learning api.LearningStatus
	if cmd.learning {
		err = cmd.fetch(ctx, func(ctx context.Context) error {
			var err error
			learning, err = cmd.app.Client.GetLearningStatus(ctx, session.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("get learning status: %w", err)
		}
	}

	if cmd.jsonOutput {
		out := struct {
			Session   string                   `json:"session_id"`
			Stats     api.Statistics           `json:"statistics"`
			Breakdown *api.StatisticsBreakdown `json:"breakdown,omitempty"`
			Patterns  *api.Patterns            `json:"patterns,omitempty"`
			Learning  *api.LearningStatus      `json:"learning,omitempty"`
		}{Session: session.ID, Stats: stats}
		if cmd.breakdown {
			out.Breakdown = &breakdown
		}
		if cmd.patterns {
			out.Patterns = &patterns
		}
		if cmd.learning {
			out.Learning = &learning
		}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, out)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, styles.TextPrimaryBoldStyle.Render(session.DocumentName))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Accepted:\t%d\n", stats.Accepted)
	fmt.Fprintf(w, "Rejected:\t%d\n", stats.Rejected)
	fmt.Fprintf(w, "Pending:\t%d\n", stats.Pending)
	fmt.Fprintf(w, "Comments:\t%d\n", stats.CustomCount)
	fmt.Fprintf(w, "Acceptance rate:\t%.0f%%\n", stats.AcceptanceRate*100)
	if err := w.Flush(); err != nil {
		return err
	}

	if cmd.breakdown && len(breakdown.Sections) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, styles.TextForegroundBoldStyle.Render("By section"))

		names := make([]string, 0, len(breakdown.Sections))
		for name := range breakdown.Sections {
			names = append(names, name)
		}
		sort.Strings(names)

		bw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(bw, "SECTION\tACCEPTED\tREJECTED\tPENDING")
		for _, name := range names {
			s := breakdown.Sections[name]
			fmt.Fprintf(bw, "%s\t%d\t%d\t%d\n", name, s.Accepted, s.Rejected, s.Pending)
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}

	if cmd.patterns {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, styles.TextForegroundBoldStyle.Render("Patterns"))
		if patterns.MostAcceptedType != "" {
			_, _ = fmt.Fprintf(out, "  most accepted type: %s\n", patterns.MostAcceptedType)
		}
		if patterns.MostRejectedType != "" {
			_, _ = fmt.Fprintf(out, "  most rejected type: %s\n", patterns.MostRejectedType)
		}
		if patterns.EngagementSummary != "" {
			_, _ = fmt.Fprintf(out, "  %s\n", styles.TextMutedStyle.Render(patterns.EngagementSummary))
		}
	}

	if cmd.learning {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, styles.TextForegroundBoldStyle.Render("Learning"))
		for _, insight := range learning.Insights {
			_, _ = fmt.Fprintf(out, "  • %s\n", insight)
		}
		for _, suggestion := range learning.Suggestions {
			_, _ = fmt.Fprintf(out, "  %s\n", styles.TextMutedStyle.Render("→ "+suggestion))
		}
	}
	return nil
}

func (cmd *StatsCmd) runDashboard(ctx context.Context, c *cli.Command) error {
	var data api.DashboardData
	err := cmd.fetch(ctx, func(ctx context.Context) error {
		var err error
		data, err = cmd.app.Client.GetDashboardData(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("get dashboard data: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, os.Stderr, data)
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total sessions:\t%d\n", data.TotalSessions)
	fmt.Fprintf(w, "Active sessions:\t%d\n", data.ActiveSessions)
	fmt.Fprintf(w, "Total feedback:\t%d\n", data.TotalFeedback)
	fmt.Fprintf(w, "Accepted:\t%d\n", data.TotalAccepted)
	fmt.Fprintf(w, "Rejected:\t%d\n", data.TotalRejected)
	return w.Flush()
}
