package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"majorincome/internal/backend"
	"majorincome/internal/core"
	"majorincome/internal/dataset"
	"majorincome/internal/export"
)

type fakeSource struct {
	records []core.AggregatedRecord
	err     error
}

func (f fakeSource) List(context.Context) ([]core.AggregatedRecord, backend.Origin, error) {
	return f.records, backend.OriginJSON, f.err
}

type fakeSheets struct {
	got []core.AggregatedRecord
	err error
}

func (f *fakeSheets) Export(_ context.Context, records []core.AggregatedRecord) error {
	f.got = records
	return f.err
}

var records = []core.AggregatedRecord{
	{Major: "NURSING", Income: 48000, SourceCount: 2},
	{Major: "ART", Income: 30000, SourceCount: 1},
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "majors.xlsx")
	svc := NewExportService(fakeSource{records: records}, nil)

	res, err := svc.ExportXLSX(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Target: path, Majors: 2, Origin: backend.OriginJSON}, res)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExportSheets(t *testing.T) {
	sheets := &fakeSheets{}
	svc := NewExportService(fakeSource{records: records}, nil)

	res, err := svc.ExportSheets(context.Background(), sheets)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Majors)
	assert.Equal(t, records, sheets.got)

	sheets.err = errors.New("quota exceeded")
	_, err = svc.ExportSheets(context.Background(), sheets)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestExportWithoutData(t *testing.T) {
	svc := NewExportService(fakeSource{err: dataset.ErrNoData}, nil)

	_, err := svc.ExportXLSX(context.Background(), filepath.Join(t.TempDir(), "x.xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrNoData)
	assert.Contains(t, err.Error(), "run a scrape first")
}
