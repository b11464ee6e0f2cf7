package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/directory"
	"github.com/sells-group/leadgen-cli/pkg/notion"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Create Notion lead pages for firms with a found email",
	Long: `Pushes every successful row to the Notion lead database. Firms whose
website domain already has a page are skipped, so the command is safe to
re-run after every extraction batch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("table") {
			cfg.Table.Path, _ = cmd.Flags().GetString("table")
		}
		if err := cfg.Validate("push"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		table, err := directory.Load(cfg.Table.Path)
		if err != nil {
			return eris.Wrap(err, "push")
		}

		status, _ := cmd.Flags().GetString("status")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		client := notion.NewClient(cfg.Notion.Token)
		res, err := notion.PushLeads(ctx, client, cfg.Notion.LeadDB, table.SuccessfulLeads(), notion.PushOptions{
			Status: status,
			DryRun: dryRun,
		})

		zap.L().Info("push finished",
			zap.Int("created", res.Created),
			zap.Int("duplicate", res.Duplicate),
			zap.Int("no_domain", res.NoDomain),
			zap.Bool("dry_run", dryRun),
		)
		verb := "Created"
		if dryRun {
			verb = "Would create"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d lead pages (%d already present, %d without a website)\n",
			verb, res.Created, res.Duplicate, res.NoDomain)

		return err
	},
}

func init() {
	pushCmd.Flags().String("table", "", "path to the law-firm directory CSV (overrides table.path)")
	pushCmd.Flags().String("status", "Queued", "Status property for new pages (empty to leave unset)")
	pushCmd.Flags().Bool("dry-run", false, "count pages that would be created without writing")
	rootCmd.AddCommand(pushCmd)
}
