package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"extract", "runs", "export", "push"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadgen-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestExtractCommand_Flags(t *testing.T) {
	for _, name := range []string{"table", "batch-size", "workers", "cooldown-days", "dry-run", "summary"} {
		require.NotNil(t, extractCmd.Flags().Lookup(name), "extract command should have --%s flag", name)
	}
	assert.Equal(t, "false", extractCmd.Flags().Lookup("dry-run").DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "leads.xlsx", flag.DefValue)
	require.NotNil(t, exportCmd.Flags().Lookup("format"))
}

func TestPushCommand_Flags(t *testing.T) {
	flag := pushCmd.Flags().Lookup("status")
	require.NotNil(t, flag)
	assert.Equal(t, "Queued", flag.DefValue)
	require.NotNil(t, pushCmd.Flags().Lookup("dry-run"))
}
