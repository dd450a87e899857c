package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"majorincome/internal/backend"
	"majorincome/internal/cli"
	"majorincome/internal/export"
	"majorincome/internal/services"
)

func newExportCommand() *cobra.Command {
	var (
		xlsxPath string
		toSheets bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored dataset to a spreadsheet",
		Example: `  majorincome export --xlsx majors.xlsx
  GOOGLE_SPREADSHEET_ID=... majorincome export --sheets`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if xlsxPath == "" && !toSheets {
				return errors.New("choose a target: --xlsx PATH or --sheets")
			}
			cfg, logger, err := cli.Bootstrap()
			if err != nil {
				return err
			}
			if toSheets {
				if err := cfg.ValidateSheets(); err != nil {
					return err
				}
			}

			ctx, stop := cli.SignalContext(cmd.Context(), logger)
			defer stop()

			res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.FromAppConfig(cfg))
			if err != nil {
				return err
			}
			defer res.Cleanup()

			svc := services.NewExportService(res.Store, logger)
			out := cmd.OutOrStdout()

			if xlsxPath != "" {
				r, err := svc.ExportXLSX(ctx, xlsxPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d majors from %s to %s\n", r.Majors, r.Origin, r.Target)
			}
			if toSheets {
				exporter, err := export.NewSheetsExporter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetRange, logger)
				if err != nil {
					return err
				}
				r, err := svc.ExportSheets(ctx, exporter)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d majors from %s to %s (%s)\n", r.Majors, r.Origin, cfg.GoogleSheetRange, r.Target)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an Excel workbook to this path")
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "replace GOOGLE_SHEET_RANGE in GOOGLE_SPREADSHEET_ID")
	return cmd
}
