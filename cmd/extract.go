package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/directory"
	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/fetcher"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Find contact emails for the next batch of pending firms",
	Long: `Loads the law-firm directory, selects up to --batch-size pending rows
(failed rows become eligible again after the cooldown), fetches each firm's
home, contact and about pages, and saves the best email back into the table.

Examples:
  # Process the default table with the configured batch size
  leadgen-cli extract

  # Show what would be processed without fetching anything
  leadgen-cli extract --dry-run

  # Larger batch, more workers, JSON summary for the scheduler
  leadgen-cli extract --batch-size 500 --workers 10 --summary run.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyExtractFlags(cmd)
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			return planExtract(cmd.OutOrStdout(), cfg.Table.Path)
		}

		rules, err := extract.LoadRules(cfg.Extract.RulesPath)
		if err != nil {
			return err
		}
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.Fetch.UserAgent,
			Timeout:      cfg.Fetch.Timeout(),
			MaxAttempts:  cfg.Fetch.MaxAttempts,
			RatePerHost:  cfg.Fetch.RatePerHost,
			Burst:        cfg.Fetch.Burst,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		})

		st, err := openStore(ctx)
		if err != nil {
			zap.L().Warn("run history unavailable", zap.Error(err))
			st = nil
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		return runExtract(ctx, cmd.OutOrStdout(), extract.New(f, rules), st)
	},
}

func init() {
	extractCmd.Flags().String("table", "", "path to the law-firm directory CSV (overrides table.path)")
	extractCmd.Flags().Int("batch-size", 0, "max rows to process this run (overrides extract.batch_size)")
	extractCmd.Flags().Int("workers", 0, "concurrent workers (overrides extract.workers)")
	extractCmd.Flags().Int("cooldown-days", -1, "days before a failed row is retried (overrides extract.cooldown_days)")
	extractCmd.Flags().Bool("dry-run", false, "print the rows that would be processed and exit")
	extractCmd.Flags().String("summary", "", "also write the run summary as JSON to this path")
	rootCmd.AddCommand(extractCmd)
}

// applyExtractFlags copies explicitly set flags over the loaded config.
func applyExtractFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("table") {
		cfg.Table.Path, _ = flags.GetString("table")
	}
	if flags.Changed("batch-size") {
		cfg.Extract.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("workers") {
		cfg.Extract.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("cooldown-days") {
		cfg.Extract.CooldownDays, _ = flags.GetInt("cooldown-days")
	}
	if flags.Changed("summary") {
		cfg.Table.SummaryPath, _ = flags.GetString("summary")
	}
}

func runnerOptions(progress io.Writer) pipeline.Options {
	return pipeline.Options{
		Workers:      cfg.Extract.Workers,
		BatchSize:    cfg.Extract.BatchSize,
		CooldownDays: cfg.Extract.CooldownDays,
		Progress:     progress,
	}
}

// runExtract runs one batch against the configured table and records it in
// st when st is non-nil. Run history failures are logged, never fatal.
func runExtract(ctx context.Context, out io.Writer, ex pipeline.Extractor, st store.Store) error {
	path := cfg.Table.Path
	log := zap.L().With(zap.String("table", path))

	var run *model.Run
	if st != nil {
		r, err := st.CreateRun(ctx, path)
		if err != nil {
			log.Warn("run history: create run failed", zap.Error(err))
		} else {
			run = r
		}
	}

	runner := pipeline.New(ex, runnerOptions(out))
	summary, runErr := runner.RunFile(ctx, path)

	if summary != nil {
		if err := pipeline.PrintSummary(out, summary); err != nil {
			log.Warn("print summary failed", zap.Error(err))
		}
		if cfg.Table.SummaryPath != "" {
			if err := pipeline.WriteSummaryJSON(cfg.Table.SummaryPath, summary); err != nil {
				log.Warn("write summary json failed", zap.Error(err))
			}
		}
	}

	if run != nil {
		// Record the outcome even if the run context was cancelled.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		var err error
		if runErr != nil {
			err = st.FailRun(recordCtx, run.ID, summary, runErr)
		} else {
			err = st.CompleteRun(recordCtx, run.ID, summary)
		}
		if err != nil {
			log.Warn("run history: record outcome failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	if runErr != nil {
		if eris.Is(runErr, pipeline.ErrInterrupted) {
			log.Warn("extraction interrupted; finished rows were saved", zap.Error(runErr))
		}
		return eris.Wrap(runErr, "extract")
	}
	return nil
}

// planExtract prints the rows the next run would process.
func planExtract(out io.Writer, path string) error {
	table, err := directory.Load(path)
	if err != nil {
		return eris.Wrap(err, "extract: dry run")
	}

	runner := pipeline.New(nil, runnerOptions(nil))
	sel := runner.Plan(table)

	for _, idx := range sel.Indices {
		lead := table.Leads[idx]
		_, _ = fmt.Fprintf(out, "[..] %s -> %s\n", lead.FirmName, lead.Website)
	}
	_, _ = fmt.Fprintf(out, "\n%d of %d records would be processed (%d on cooldown, %d deferred to later runs)\n",
		len(sel.Indices), len(table.Leads), sel.Skipped, sel.Deferred)
	return nil
}
