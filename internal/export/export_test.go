package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func sampleLeads() []model.Lead {
	return []model.Lead{
		{
			FirmName:     "Smith & Partners, LLP",
			Website:      "https://smithlaw.com",
			PracticeArea: "Family",
			State:        "CA",
			Attempted:    "2025-06-30",
			Status:       model.StatusSuccess,
			Email:        "intake@smithlaw.com",
			AllEmails:    []string{"intake@smithlaw.com", "jane@smithlaw.com"},
		},
		{
			FirmName:  "Jones Firm",
			Website:   "jonesfirm.com",
			Attempted: "2025-06-29",
			Status:    model.StatusSuccess,
			Email:     "info@jonesfirm.com",
			AllEmails: []string{"info@jonesfirm.com"},
		},
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, format, path string
		want               Format
		wantErr            bool
	}{
		{"explicit csv", "csv", "out.xlsx", FormatCSV, false},
		{"explicit upper", "XLSX", "out", FormatXLSX, false},
		{"from extension", "", "leads.xlsx", FormatXLSX, false},
		{"from csv extension", "", "dir/leads.CSV", FormatCSV, false},
		{"no extension", "", "leads", "", true},
		{"unknown", "json", "leads.json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FormatFor(tt.format, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, ErrFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeads_CSV(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leads.csv")

	n, err := Leads(path, FormatCSV, sampleLeads())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{
		"Smith & Partners, LLP", "https://smithlaw.com", "Family", "CA",
		"intake@smithlaw.com", "intake@smithlaw.com|jane@smithlaw.com", "2025-06-30",
	}, records[1])
	assert.Equal(t, "info@jonesfirm.com", records[2][4])
}

func TestLeads_XLSX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leads.xlsx")

	n, err := Leads(path, FormatXLSX, sampleLeads())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, model.ColFirmName, sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Smith & Partners, LLP", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "intake@smithlaw.com", sheet.Rows[1].Cells[4].String())
	assert.Equal(t, "jonesfirm.com", sheet.Rows[2].Cells[1].String())
}

func TestLeads_Empty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leads.csv")

	n, err := Leads(path, FormatCSV, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "firm_name,website")
}

func TestLeads_UnknownFormat(t *testing.T) {
	t.Parallel()
	_, err := Leads(filepath.Join(t.TempDir(), "x"), Format("pdf"), sampleLeads())
	assert.True(t, eris.Is(err, ErrFormat))
}

func TestLeads_UnwritablePath(t *testing.T) {
	t.Parallel()
	n, err := Leads(filepath.Join(t.TempDir(), "missing", "leads.csv"), FormatCSV, sampleLeads())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: create")
	assert.Zero(t, n)

	n, err = Leads(filepath.Join(t.TempDir(), "missing", "leads.xlsx"), FormatXLSX, sampleLeads())
	require.Error(t, err)
	assert.Zero(t, n)
}
