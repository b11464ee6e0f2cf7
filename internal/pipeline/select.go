package pipeline

import (
	"time"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Selection is the outcome of candidate selection over a table.
type Selection struct {
	// Indices are the rows to process this run, in table order.
	Indices []int
	// Skipped counts failed rows still inside their cooldown window.
	Skipped int
	// Deferred counts eligible rows left for a later run by the batch bound.
	Deferred int
}

// SelectCandidates picks the rows that need extraction on today's date.
//
// Pending rows are always eligible, successful rows never are, and failed rows
// become eligible again once cooldownDays have passed since their last
// attempt. A failed row with a missing or unparseable attempt date counts as
// elapsed. At most batchSize rows are returned; batchSize <= 0 means no
// bound.
func SelectCandidates(table *model.Table, today time.Time, cooldownDays, batchSize int) Selection {
	var sel Selection
	day := model.CalendarDate(today)

	for i, lead := range table.Leads {
		switch lead.EffectiveStatus() {
		case model.StatusSuccess:
			continue
		case model.StatusFailed:
			if !cooldownElapsed(lead, day, cooldownDays) {
				sel.Skipped++
				continue
			}
		}

		if batchSize > 0 && len(sel.Indices) >= batchSize {
			sel.Deferred++
			continue
		}
		sel.Indices = append(sel.Indices, i)
	}
	return sel
}

func cooldownElapsed(lead model.Lead, today time.Time, cooldownDays int) bool {
	last, ok := lead.AttemptedAt()
	if !ok {
		return true
	}
	days := int(today.Sub(last).Hours() / 24)
	return days >= cooldownDays
}
