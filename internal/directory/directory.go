// Package directory loads and saves the law-firm directory CSV that the
// extraction pipeline enriches in place.
package directory

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	// ErrNotFound is returned by Load when the table file does not exist.
	ErrNotFound = eris.New("directory: table not found")
	// ErrFormat is returned by Load when the table does not match the expected schema.
	ErrFormat = eris.New("directory: malformed table")
)

// Load reads the full directory table from path.
func Load(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "directory: open %s", path)
		}
		return nil, eris.Wrapf(err, "directory: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Read(f)
}

// Read parses a directory table from r.
func Read(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.Wrap(ErrFormat, "directory: empty file, missing header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "directory: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		header[i] = col
		if _, dup := index[col]; dup {
			return nil, eris.Wrapf(ErrFormat, "directory: duplicate column %q", col)
		}
		index[col] = i
	}
	for _, col := range model.RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, eris.Wrapf(ErrFormat, "directory: missing required column %q", col)
		}
	}

	columns := append([]string(nil), header...)
	for _, col := range model.EnrichmentColumns {
		if _, ok := index[col]; !ok {
			columns = append(columns, col)
		}
	}

	table := &model.Table{Columns: columns}
	seen := make(map[string]int)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "directory: read row %d", line)
		}
		if len(rec) > len(header) {
			return nil, eris.Wrapf(ErrFormat, "directory: row %d has %d fields, header has %d", line, len(rec), len(header))
		}

		lead := leadFromRecord(header, rec)
		if !lead.Status.Valid() {
			return nil, eris.Wrapf(ErrFormat, "directory: row %d has unknown %s %q", line, model.ColStatus, lead.Status)
		}
		if d := lead.Domain(); d != "" {
			if prev, dup := seen[d]; dup {
				return nil, eris.Wrapf(ErrFormat, "directory: row %d duplicates domain %s from row %d", line, d, prev)
			}
			seen[d] = line
		}
		table.Leads = append(table.Leads, lead)
	}

	return table, nil
}

// leadFromRecord maps a CSV record onto a Lead. Short records are padded with
// empty cells.
func leadFromRecord(header, rec []string) model.Lead {
	var lead model.Lead
	for i, col := range header {
		val := ""
		if i < len(rec) {
			val = rec[i]
		}
		switch col {
		case model.ColFirmName:
			lead.FirmName = val
		case model.ColWebsite:
			lead.Website = val
		case model.ColPracticeArea:
			lead.PracticeArea = val
		case model.ColState:
			lead.State = val
		case model.ColAttempted:
			lead.Attempted = val
		case model.ColStatus:
			lead.Status = model.ExtractionStatus(strings.TrimSpace(val))
		case model.ColEmail:
			lead.Email = val
		case model.ColAllEmails:
			lead.AllEmails = SplitEmails(val)
		default:
			if lead.Extra == nil {
				lead.Extra = make(map[string]string)
			}
			lead.Extra[col] = val
		}
	}
	return lead
}

// recordFromLead renders a Lead in the given column order.
func recordFromLead(columns []string, lead model.Lead) []string {
	rec := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case model.ColFirmName:
			rec[i] = lead.FirmName
		case model.ColWebsite:
			rec[i] = lead.Website
		case model.ColPracticeArea:
			rec[i] = lead.PracticeArea
		case model.ColState:
			rec[i] = lead.State
		case model.ColAttempted:
			rec[i] = lead.Attempted
		case model.ColStatus:
			rec[i] = string(lead.Status)
		case model.ColEmail:
			rec[i] = lead.Email
		case model.ColAllEmails:
			rec[i] = JoinEmails(lead.AllEmails)
		default:
			rec[i] = lead.Extra[col]
		}
	}
	return rec
}

// Write renders the table as CSV to w.
func Write(w io.Writer, table *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return eris.Wrap(err, "directory: write header")
	}
	for i, lead := range table.Leads {
		if err := cw.Write(recordFromLead(table.Columns, lead)); err != nil {
			return eris.Wrapf(err, "directory: write row %d", i+2)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "directory: flush")
}

// Save replaces the table at path atomically. On any failure the previous
// file content is left untouched.
func Save(path string, table *model.Table) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return Write(w, table)
	})
}

// SplitEmails parses the pipe-delimited all_emails cell.
func SplitEmails(cell string) []string {
	if cell == "" {
		return nil
	}
	return strings.Split(cell, "|")
}

// JoinEmails renders candidates as a pipe-delimited all_emails cell.
func JoinEmails(emails []string) string {
	return strings.Join(emails, "|")
}
