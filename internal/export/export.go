// Package export writes successful leads to outreach-friendly files.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/directory"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet name used for XLSX exports.
const SheetName = "Leads"

// ErrFormat is returned for an unsupported export format.
var ErrFormat = eris.New("export: unsupported format")

// Header is the column order of every export.
var Header = []string{
	model.ColFirmName,
	model.ColWebsite,
	model.ColPracticeArea,
	model.ColState,
	model.ColEmail,
	model.ColAllEmails,
	model.ColAttempted,
}

// FormatFor resolves an explicit format name, falling back to the output
// path extension.
func FormatFor(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	switch f := Format(strings.ToLower(name)); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Wrapf(ErrFormat, "export: %q", name)
	}
}

// Leads writes leads to path in the given format and returns the number of
// rows written.
func Leads(path string, format Format, leads []model.Lead) (int, error) {
	var err error
	switch format {
	case FormatCSV:
		err = writeCSV(path, leads)
	case FormatXLSX:
		err = writeXLSX(path, leads)
	default:
		return 0, eris.Wrapf(ErrFormat, "export: %q", format)
	}
	if err != nil {
		return 0, err
	}
	return len(leads), nil
}

func row(l model.Lead) []string {
	return []string{
		l.FirmName,
		l.Website,
		l.PracticeArea,
		l.State,
		l.Email,
		directory.JoinEmails(l.AllEmails),
		l.Attempted,
	}
}

func writeCSV(path string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "export: write header")
	}
	for _, l := range leads {
		if err := w.Write(row(l)); err != nil {
			_ = f.Close()
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "export: flush")
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

func writeXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Header)
	for _, l := range leads {
		addRow(sheet, row(l))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	r := sheet.AddRow()
	for _, v := range cells {
		r.AddCell().SetString(v)
	}
}
