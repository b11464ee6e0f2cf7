package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func sampleSummary() *model.RunSummary {
	return &model.RunSummary{
		RunDate:   today,
		TablePath: "law-firms-directory.csv",
		Total:     120,
		Eligible:  40,
		Success:   30,
		Failed:    10,
		Skipped:   5,
		Deferred:  2,
		BatchSize: 40,
		Workers:   5,
		Duration:  61500,
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "Extraction summary (2025-06-30)")
	assert.Contains(t, out, "processed:      40")
	assert.Contains(t, out, "emails found:   30 (75.0%)")
	assert.Contains(t, out, "cooldown skip:  5")
	assert.Contains(t, out, "duration:       1m1.5s")
}

func TestPrintSummary_NothingProcessed(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, &model.RunSummary{RunDate: today}))
	assert.Contains(t, buf.String(), "emails found:   0 (0.0%)")
}

func TestWriteSummaryJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "lead-gen-summary.json")
	require.NoError(t, WriteSummaryJSON(path, sampleSummary()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(30), got["success"])
	assert.Equal(t, float64(61500), got["duration_ms"])
	assert.Equal(t, "law-firms-directory.csv", got["table_path"])
}

func TestWriteSummaryJSON_BadPath(t *testing.T) {
	t.Parallel()
	err := WriteSummaryJSON(filepath.Join(t.TempDir(), "no", "such", "dir.json"), sampleSummary())
	require.Error(t, err)
}
