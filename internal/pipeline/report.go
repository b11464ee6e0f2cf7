package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// PrintSummary writes the human-readable run summary block.
func PrintSummary(w io.Writer, s *model.RunSummary) error {
	rate := 0.0
	if s.Eligible > 0 {
		rate = float64(s.Success) / float64(s.Eligible) * 100
	}
	_, err := fmt.Fprintf(w, `
Extraction summary (%s)
  total records:  %d
  processed:      %d
  emails found:   %d (%.1f%%)
  no email:       %d
  cooldown skip:  %d
  deferred:       %d
  duration:       %s
`,
		s.RunDate.Format(model.DateLayout),
		s.Total, s.Eligible, s.Success, rate, s.Failed, s.Skipped, s.Deferred,
		(time.Duration(s.Duration) * time.Millisecond).String(),
	)
	return eris.Wrap(err, "pipeline: print summary")
}

// WriteSummaryJSON writes s as indented JSON to path.
func WriteSummaryJSON(path string, s *model.RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal summary")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec
		return eris.Wrapf(err, "pipeline: write summary %s", path)
	}
	return nil
}
