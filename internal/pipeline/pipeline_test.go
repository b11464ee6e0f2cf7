package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/directory"
	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/model"
)

func fixedNow() time.Time { return today }

// mapExtractor answers from a website → candidates table and picks the best
// with the production chooser.
func mapExtractor(sites map[string][]string) ExtractorFunc {
	prefixes := extract.DefaultRules().PreferredPrefixes
	return func(_ context.Context, website string) extract.Result {
		c := sites[website]
		return extract.Result{Candidates: c, Best: extract.ChooseBest(c, model.NormalizeDomain(website), prefixes)}
	}
}

func TestRun_EndToEndThreeRecords(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "law-firms-directory.csv")
	require.NoError(t, os.WriteFile(path, []byte(`firm_name,website,extraction_attempted,extraction_status,email,all_emails
Firm A,firm-a.com,2025-01-10,success,info@firm-a.com,info@firm-a.com
Firm B,firm-b.com,,pending,,
Firm C,firm-c.com,,pending,,
`), 0o644))

	var calls atomic.Int32
	sites := map[string][]string{"firm-b.com": {"contact@firm-b.com"}}
	ex := ExtractorFunc(func(ctx context.Context, website string) extract.Result {
		calls.Add(1)
		return mapExtractor(sites)(ctx, website)
	})

	var progress bytes.Buffer
	r := New(ex, Options{Workers: 5, BatchSize: 100, CooldownDays: 30, Progress: &progress, Now: fixedNow})
	summary, err := r.RunFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Eligible)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, path, summary.TablePath)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, "[OK] Firm B -> contact@firm-b.com\n[--] Firm C -> (no email found)\n", progress.String())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `firm_name,website,extraction_attempted,extraction_status,email,all_emails
Firm A,firm-a.com,2025-01-10,success,info@firm-a.com,info@firm-a.com
Firm B,firm-b.com,2025-06-30,success,contact@firm-b.com,contact@firm-b.com
Firm C,firm-c.com,2025-06-30,failed,,
`, string(got))
}

func TestRunFile_MissingTable(t *testing.T) {
	t.Parallel()
	r := New(mapExtractor(nil), Options{Now: fixedNow})
	_, err := r.RunFile(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, directory.ErrNotFound))
}

func TestRunFile_NothingEligibleLeavesFileAlone(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "t.csv")
	content := "firm_name,website,extraction_attempted,extraction_status\nA,a.com,2025-06-29,failed\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	before, err := os.Stat(path)
	require.NoError(t, err)

	r := New(mapExtractor(nil), Options{CooldownDays: 30, BatchSize: 10, Now: fixedNow})
	summary, err := r.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Eligible)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

// bigTable builds n pending rows over distinct domains.
func bigTable(n int) *model.Table {
	tbl := &model.Table{Columns: []string{
		model.ColFirmName, model.ColWebsite, model.ColAttempted, model.ColStatus, model.ColEmail, model.ColAllEmails,
	}}
	for i := range n {
		tbl.Leads = append(tbl.Leads, model.Lead{
			FirmName: fmt.Sprintf("Firm %03d", i),
			Website:  fmt.Sprintf("firm%03d.com", i),
			Status:   model.StatusPending,
		})
	}
	return tbl
}

// jitteryExtractor sleeps a website-dependent amount so completion order
// differs from table order under concurrency.
func jitteryExtractor() ExtractorFunc {
	return func(_ context.Context, website string) extract.Result {
		h := fnv.New32a()
		_, _ = h.Write([]byte(website))
		sum := h.Sum32()
		time.Sleep(time.Duration(sum%5) * time.Millisecond)
		if sum%3 == 0 {
			return extract.Result{}
		}
		domain := model.NormalizeDomain(website)
		c := []string{"partner@" + domain, "info@" + domain}
		return extract.Result{Candidates: c, Best: c[1]}
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	render := func(workers int) (string, string) {
		tbl := bigTable(40)
		var progress bytes.Buffer
		r := New(jitteryExtractor(), Options{Workers: workers, BatchSize: 30, CooldownDays: 30, Progress: &progress, Now: fixedNow})
		_, err := r.Run(context.Background(), tbl)
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, directory.Write(&out, tbl))
		return out.String(), progress.String()
	}

	serialTable, serialProgress := render(1)
	parallelTable, parallelProgress := render(8)
	assert.Equal(t, serialTable, parallelTable)
	assert.Equal(t, serialProgress, parallelProgress)
}

func TestRun_SummaryIndependentOfWorkers(t *testing.T) {
	t.Parallel()
	var summaries []*model.RunSummary
	for _, w := range []int{1, 3, 8} {
		r := New(jitteryExtractor(), Options{Workers: w, BatchSize: 25, CooldownDays: 30, Now: fixedNow})
		s, err := r.Run(context.Background(), bigTable(40))
		require.NoError(t, err)
		s.Workers = 0
		summaries = append(summaries, s)
	}
	assert.Equal(t, summaries[0], summaries[1])
	assert.Equal(t, summaries[0], summaries[2])
	assert.Equal(t, 15, summaries[0].Deferred)
	assert.Equal(t, 25, summaries[0].Eligible)
}

func TestRun_SuccessIsIdempotent(t *testing.T) {
	t.Parallel()
	tbl := bigTable(6)
	sites := map[string][]string{}
	for _, l := range tbl.Leads {
		sites[l.Website] = []string{"intake@" + l.Domain()}
	}
	r := New(mapExtractor(sites), Options{Workers: 3, BatchSize: 10, CooldownDays: 30, Now: fixedNow})

	first, err := r.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Success)

	var before bytes.Buffer
	require.NoError(t, directory.Write(&before, tbl))

	ex := ExtractorFunc(func(context.Context, string) extract.Result {
		t.Error("extractor called for an already successful row")
		return extract.Result{}
	})
	second, err := New(ex, Options{Workers: 3, BatchSize: 10, CooldownDays: 30, Now: fixedNow}).Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Zero(t, second.Eligible)
	assert.Zero(t, second.Skipped)

	var after bytes.Buffer
	require.NoError(t, directory.Write(&after, tbl))
	assert.Equal(t, before.String(), after.String())
}

func TestRun_CooldownBlocksRecentFailures(t *testing.T) {
	t.Parallel()
	tbl := bigTable(1)
	r := New(mapExtractor(nil), Options{Workers: 1, BatchSize: 10, CooldownDays: 30, Now: fixedNow})

	s, err := r.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Failed)

	next := New(mapExtractor(nil), Options{Workers: 1, BatchSize: 10, CooldownDays: 30, Now: func() time.Time {
		return today.AddDate(0, 0, 10)
	}})
	s, err = next.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Skipped)
	assert.Zero(t, s.Eligible)

	later := New(mapExtractor(nil), Options{Workers: 1, BatchSize: 10, CooldownDays: 30, Now: func() time.Time {
		return today.AddDate(0, 0, 30)
	}})
	s, err = later.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Eligible)
	assert.Equal(t, "2025-07-30", tbl.Leads[0].Attempted)
}

func TestRun_BatchBound(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	ex := ExtractorFunc(func(context.Context, string) extract.Result {
		calls.Add(1)
		return extract.Result{}
	})
	tbl := bigTable(12)
	s, err := New(ex, Options{Workers: 4, BatchSize: 5, CooldownDays: 30, Now: fixedNow}).Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 5, s.Eligible)
	assert.Equal(t, 7, s.Deferred)
	for i, l := range tbl.Leads {
		if i < 5 {
			assert.Equal(t, model.StatusFailed, l.Status)
		} else {
			assert.Equal(t, model.StatusPending, l.Status)
			assert.Empty(t, l.Attempted)
		}
	}
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	t.Parallel()
	ex := ExtractorFunc(func(_ context.Context, website string) extract.Result {
		if website == "firm001.com" {
			panic("parser exploded")
		}
		return extract.Result{Candidates: []string{"info@x.com"}, Best: "info@x.com"}
	})
	tbl := bigTable(3)
	s, err := New(ex, Options{Workers: 2, BatchSize: 10, CooldownDays: 30, Now: fixedNow}).Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Success)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, model.StatusFailed, tbl.Leads[1].Status)
	assert.Equal(t, "2025-06-30", tbl.Leads[1].Attempted)
}

func TestRun_BestAlwaysInAllEmails(t *testing.T) {
	t.Parallel()
	ex := ExtractorFunc(func(context.Context, string) extract.Result {
		return extract.Result{Candidates: []string{"bob@x.com"}, Best: "info@x.com"}
	})
	tbl := bigTable(1)
	_, err := New(ex, Options{Now: fixedNow}).Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"info@x.com", "bob@x.com"}, tbl.Leads[0].AllEmails)
}

func TestRun_Interrupted(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl := bigTable(4)
	s, err := New(mapExtractor(nil), Options{Workers: 2, BatchSize: 10, CooldownDays: 30, Now: fixedNow}).Run(ctx, tbl)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInterrupted))
	assert.Zero(t, s.Eligible)
	for _, l := range tbl.Leads {
		assert.Equal(t, model.StatusPending, l.Status)
		assert.Empty(t, l.Attempted)
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()
	r := New(mapExtractor(nil), Options{BatchSize: 2, CooldownDays: 30, Now: fixedNow})
	sel := r.Plan(bigTable(5))
	assert.Equal(t, []int{0, 1}, sel.Indices)
	assert.Equal(t, 3, sel.Deferred)
}
