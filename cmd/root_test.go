package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"scrape", "merge", "inspect", "imdb", "history", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "boxoffice", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScrapeCommand_Flags(t *testing.T) {
	for _, name := range []string{"year", "years", "limit", "out", "no-cache"} {
		require.NotNil(t, scrapeCmd.Flags().Lookup(name), "scrape command should have --%s flag", name)
	}
	assert.Equal(t, "0", scrapeCmd.Flags().Lookup("limit").DefValue)
}

func TestIMDbCommand_Flags(t *testing.T) {
	flag := imdbCmd.Flags().Lookup("start-year")
	require.NotNil(t, flag)
	assert.Equal(t, "1927", flag.DefValue)

	for _, name := range []string{"end-year", "max-pages", "output", "test"} {
		require.NotNil(t, imdbCmd.Flags().Lookup(name), "imdb command should have --%s flag", name)
	}
}

func TestInspectCommand_Flags(t *testing.T) {
	flag := inspectCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
	assert.Error(t, inspectCmd.Args(inspectCmd, nil))
	assert.NoError(t, inspectCmd.Args(inspectCmd, []string{"https://www.boxofficemojo.com/release/rl1/"}))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestHistoryCommand_Flags(t *testing.T) {
	flag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
	require.NotNil(t, historyCmd.Flags().Lookup("run"))
}
