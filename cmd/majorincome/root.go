package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "majorincome",
		Short: "College major income scraper and API",
		Long: `majorincome fetches college-major income tables from public sources,
merges duplicate majors by averaging their incomes, stores the result in
SQLite with a JSON fallback file, and serves statistics and a bar chart over
HTTP.

Configuration is read from the environment (and a .env file when present).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newScrapeCommand(),
		newExportCommand(),
		newSourcesCommand(),
	)
	return root
}
