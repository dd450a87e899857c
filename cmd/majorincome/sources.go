package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"majorincome/internal/cli"
	"majorincome/internal/config"
)

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured data sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := cli.Bootstrap()
			if err != nil {
				return err
			}
			return printSources(cmd.OutOrStdout(), cfg.Sources)
		},
	}
}

func printSources(out io.Writer, sources []config.Source) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tFORMAT\tURL")
	for i, s := range sources {
		name := s.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, name, s.Format, s.URL)
	}
	return tw.Flush()
}
