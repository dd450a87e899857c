package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"majorincome/internal/core"
	"majorincome/internal/log"
)

// SheetsExporter replaces the contents of a spreadsheet range with the dataset.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	writeRange    string
	logger        *log.Logger
}

// NewSheetsExporter authenticates with service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsExporter(ctx context.Context, spreadsheetID, writeRange string, logger *log.Logger) (*SheetsExporter, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentExport)

	creds, err := serviceAccountCredentials(ctx, logger)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewSheetsExporterWithService(svc, spreadsheetID, writeRange, logger)
}

// NewSheetsExporterWithService wraps an existing Sheets service.
func NewSheetsExporterWithService(svc *gsheet.Service, spreadsheetID, writeRange string, logger *log.Logger) (*SheetsExporter, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(writeRange) == "" {
		writeRange = SheetName + "!A1"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID, writeRange: writeRange, logger: logger}, nil
}

// Export clears the target sheet and writes header plus one row per major.
func (e *SheetsExporter) Export(ctx context.Context, records []core.AggregatedRecord) error {
	target := clearRange(e.writeRange)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, target, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", target, err)
	}

	rows := Rows(records)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, e.writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", e.writeRange, err)
	}

	e.logger.InfoContext(ctx, "Exported dataset to Google Sheets",
		log.FieldOperation, log.OpExport,
		log.FieldMajorCount, len(records),
		"updated_rows", resp.UpdatedRows,
		"range", e.writeRange)
	return nil
}

// clearRange widens "Sheet!A1" to the whole sheet so stale rows from a
// larger previous export do not linger.
func clearRange(writeRange string) string {
	if sheet, _, ok := strings.Cut(writeRange, "!"); ok && sheet != "" {
		return sheet
	}
	return "A:C"
}

func serviceAccountCredentials(ctx context.Context, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}
