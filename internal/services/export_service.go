// Package services holds the use cases that sit between the CLI and the
// stores.
package services

import (
	"context"
	"errors"
	"fmt"

	"majorincome/internal/backend"
	"majorincome/internal/core"
	"majorincome/internal/dataset"
	"majorincome/internal/export"
	"majorincome/internal/log"
)

type (
	// RecordSource lists the current dataset and where it came from.
	RecordSource interface {
		List(ctx context.Context) ([]core.AggregatedRecord, backend.Origin, error)
	}

	// SheetsWriter replaces a spreadsheet's contents.
	SheetsWriter interface {
		Export(ctx context.Context, records []core.AggregatedRecord) error
	}
)

// ExportResult summarizes a finished export.
type ExportResult struct {
	Target string
	Majors int
	Origin backend.Origin
}

// ExportService copies the stored dataset to spreadsheet targets.
type ExportService struct {
	source RecordSource
	logger *log.Logger
}

func NewExportService(source RecordSource, logger *log.Logger) *ExportService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportService{source: source, logger: logger.WithComponent(log.ComponentExport)}
}

// ExportXLSX writes the dataset to a workbook at path.
func (s *ExportService) ExportXLSX(ctx context.Context, path string) (ExportResult, error) {
	records, origin, err := s.load(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	if err := export.SaveXLSX(path, records); err != nil {
		return ExportResult{}, fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.InfoContext(ctx, "Exported dataset to workbook",
		log.FieldOperation, log.OpExport,
		log.FieldMajorCount, len(records),
		"path", path,
		"source", origin.String())
	return ExportResult{Target: path, Majors: len(records), Origin: origin}, nil
}

// ExportSheets pushes the dataset through w.
func (s *ExportService) ExportSheets(ctx context.Context, w SheetsWriter) (ExportResult, error) {
	records, origin, err := s.load(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	if err := w.Export(ctx, records); err != nil {
		return ExportResult{}, fmt.Errorf("sheets export: %w", err)
	}
	return ExportResult{Target: "google-sheets", Majors: len(records), Origin: origin}, nil
}

func (s *ExportService) load(ctx context.Context) ([]core.AggregatedRecord, backend.Origin, error) {
	records, origin, err := s.source.List(ctx)
	if errors.Is(err, dataset.ErrNoData) {
		return nil, origin, fmt.Errorf("nothing to export, run a scrape first: %w", err)
	}
	if err != nil {
		return nil, origin, fmt.Errorf("load dataset: %w", err)
	}
	return records, origin, nil
}
