// Package pipeline runs the resumable email-enrichment batch over a loaded
// directory table: select, fan out, merge by row index, summarize.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/directory"
	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrInterrupted is returned when the run context ends before every selected
// row finished. Rows that did finish are still merged.
var ErrInterrupted = eris.New("pipeline: run interrupted")

// Extractor finds email candidates for one website and picks the best.
type Extractor interface {
	Extract(ctx context.Context, website string) extract.Result
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, website string) extract.Result

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, website string) extract.Result {
	return f(ctx, website)
}

// Options tunes a Runner.
type Options struct {
	Workers      int
	BatchSize    int
	CooldownDays int
	// Progress receives one line per processed row. Nil discards them.
	Progress io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

// outcome is the per-row slot a worker fills. Each slot is written by
// exactly one goroutine and read only after the group finishes.
type outcome struct {
	done   bool
	best   string
	emails []string
}

// Runner executes extraction runs.
type Runner struct {
	ex   Extractor
	opts Options
}

// New creates a Runner. Workers below 1 run serially.
func New(ex Extractor, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{ex: ex, opts: opts}
}

// Plan returns the rows a run would process today without touching them.
func (r *Runner) Plan(table *model.Table) Selection {
	return SelectCandidates(table, r.opts.Now(), r.opts.CooldownDays, r.opts.BatchSize)
}

// Run processes the selected rows of table and merges results into it in
// place. The returned summary is complete even when the error is
// ErrInterrupted.
func (r *Runner) Run(ctx context.Context, table *model.Table) (*model.RunSummary, error) {
	start := r.opts.Now()
	today := model.CalendarDate(start)
	sel := SelectCandidates(table, start, r.opts.CooldownDays, r.opts.BatchSize)

	log := zap.L().With(zap.Int("batch", len(sel.Indices)), zap.Int("workers", r.opts.Workers))
	log.Info("pipeline: starting run",
		zap.Int("total", len(table.Leads)),
		zap.Int("skipped", sel.Skipped),
		zap.Int("deferred", sel.Deferred),
	)

	results := make([]outcome, len(sel.Indices))

	g := new(errgroup.Group)
	g.SetLimit(r.opts.Workers)
	for slot, idx := range sel.Indices {
		lead := table.Leads[idx]
		g.Go(func() error {
			results[slot] = r.process(ctx, lead)
			return nil
		})
	}
	_ = g.Wait()

	summary := &model.RunSummary{
		RunDate:   today,
		Total:     len(table.Leads),
		Skipped:   sel.Skipped,
		Deferred:  sel.Deferred,
		BatchSize: r.opts.BatchSize,
		Workers:   r.opts.Workers,
	}

	stamp := today.Format(model.DateLayout)
	for slot, idx := range sel.Indices {
		res := results[slot]
		if !res.done {
			continue
		}
		lead := &table.Leads[idx]
		lead.Attempted = stamp
		lead.AllEmails = res.emails
		lead.Email = res.best
		summary.Eligible++

		if res.best != "" {
			lead.Status = model.StatusSuccess
			summary.Success++
			fmt.Fprintf(r.opts.Progress, "[OK] %s -> %s\n", lead.FirmName, res.best) //nolint:errcheck
		} else {
			lead.Status = model.StatusFailed
			summary.Failed++
			fmt.Fprintf(r.opts.Progress, "[--] %s -> (no email found)\n", lead.FirmName) //nolint:errcheck
		}
	}
	summary.Duration = r.opts.Now().Sub(start).Milliseconds()

	log.Info("pipeline: run complete",
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int64("duration_ms", summary.Duration),
	)

	if ctx.Err() != nil && summary.Eligible < len(sel.Indices) {
		return summary, eris.Wrapf(ErrInterrupted, "pipeline: %d of %d rows unfinished", len(sel.Indices)-summary.Eligible, len(sel.Indices))
	}
	return summary, nil
}

// process extracts one row. A panic inside the extractor becomes a failed
// outcome for that row only.
func (r *Runner) process(ctx context.Context, lead model.Lead) (out outcome) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("pipeline: extractor panicked",
				zap.String("firm", lead.FirmName),
				zap.String("website", lead.Website),
				zap.Any("panic", p),
			)
			out = outcome{done: ctx.Err() == nil}
		}
	}()

	res := r.ex.Extract(ctx, lead.Website)
	if ctx.Err() != nil {
		return outcome{}
	}

	if res.Best != "" && !slices.Contains(res.Candidates, res.Best) {
		res.Candidates = append([]string{res.Best}, res.Candidates...)
	}
	zap.L().Debug("pipeline: row extracted",
		zap.String("firm", lead.FirmName),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("pages", len(res.Pages)),
	)
	return outcome{done: true, best: res.Best, emails: res.Candidates}
}

// RunFile loads the table at path, runs it and saves it back atomically. The
// table is saved whenever at least one row was merged, including after an
// interruption.
func (r *Runner) RunFile(ctx context.Context, path string) (*model.RunSummary, error) {
	table, err := directory.Load(path)
	if err != nil {
		return nil, err
	}

	summary, runErr := r.Run(ctx, table)
	summary.TablePath = path
	if summary.Eligible > 0 {
		if err := directory.Save(path, table); err != nil {
			return summary, eris.Wrapf(err, "pipeline: save %s", path)
		}
	}
	return summary, runErr
}
