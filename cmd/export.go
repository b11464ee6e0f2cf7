package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/directory"
	"github.com/sells-group/leadgen-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write firms with a found email to XLSX or CSV",
	Long: `Exports every row whose extraction succeeded to a spreadsheet for outreach.

Examples:
  leadgen-cli export --out leads.xlsx
  leadgen-cli export --out leads.txt --format csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("table") {
			cfg.Table.Path, _ = cmd.Flags().GetString("table")
		}
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		formatName, _ := cmd.Flags().GetString("format")
		format, err := export.FormatFor(formatName, out)
		if err != nil {
			return err
		}

		table, err := directory.Load(cfg.Table.Path)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		n, err := export.Leads(out, format, table.SuccessfulLeads())
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("table", cfg.Table.Path),
			zap.String("out", out),
			zap.String("format", string(format)),
			zap.Int("rows", n),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d leads to %s\n", n, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("table", "", "path to the law-firm directory CSV (overrides table.path)")
	exportCmd.Flags().String("out", "leads.xlsx", "output file")
	exportCmd.Flags().String("format", "", "xlsx or csv (default: from --out extension)")
	rootCmd.AddCommand(exportCmd)
}
