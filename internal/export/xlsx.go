// Package export writes the aggregated dataset to spreadsheet formats.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"majorincome/internal/core"
)

const (
	SheetName  = "Majors"
	chartTitle = "College Majors by Income"
)

var headers = []any{"Major", "Median Income", "Sources"}

// Rows converts records into spreadsheet rows, header first, highest income first.
func Rows(records []core.AggregatedRecord) [][]any {
	sorted := core.SortByIncomeDesc(records)
	rows := make([][]any, 0, len(sorted)+1)
	rows = append(rows, headers)
	for _, r := range sorted {
		rows = append(rows, []any{r.Major, r.Income, r.SourceCount})
	}
	return rows
}

// BuildWorkbook lays the records out on a single sheet with a bar chart
// anchored to the right of the table.
func BuildWorkbook(records []core.AggregatedRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := Rows(records)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(SheetName, "A", "A", 42)
	_ = f.SetColWidth(SheetName, "B", "C", 16)

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "C1", style)
	}
	if style, err := f.NewStyle(&excelize.Style{NumFmt: 3}); err == nil && len(rows) > 1 {
		_ = f.SetCellStyle(SheetName, "B2", fmt.Sprintf("B%d", len(rows)), style)
	}

	if len(rows) > 1 {
		last := len(rows)
		chart := &excelize.Chart{
			Type: excelize.Bar,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$B$1", SheetName),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", SheetName, last),
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", SheetName, last),
			}},
			Title:     []excelize.RichTextRun{{Text: chartTitle}},
			Legend:    excelize.ChartLegend{Position: "none"},
			Dimension: excelize.ChartDimension{Width: 900, Height: uint(max(320, 18*(last-1)))},
		}
		if err := f.AddChart(SheetName, "E2", chart); err != nil {
			f.Close()
			return nil, fmt.Errorf("add chart: %w", err)
		}
	}
	return f, nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(w io.Writer, records []core.AggregatedRecord) error {
	f, err := BuildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveXLSX writes the workbook to path, creating parent directories.
func SaveXLSX(path string, records []core.AggregatedRecord) error {
	f, err := BuildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}
