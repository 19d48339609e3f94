package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/report"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer exports report tables to a Google Sheets spreadsheet, one sheet
// per table.
type Writer struct {
	service *sheets.Service
	config  Config
}

// NewWriter creates a Google Sheets writer authenticated with a
// service-account credentials file.
func NewWriter(ctx context.Context, config Config) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	creds, err := os.ReadFile(config.ServiceAccountPath)
	if err != nil {
		return nil, fmt.Errorf("read service account credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Writer{service: service, config: config}, nil
}

// Write replaces each table's sheet with the current rows, creating sheets
// that don't exist yet.
func (w *Writer) Write(ctx context.Context, tables []report.Table) error {
	existing, err := w.existingSheets(ctx)
	if err != nil {
		return err
	}

	for _, table := range tables {
		if !existing[table.Name] {
			if err := w.addSheet(ctx, table.Name); err != nil {
				return err
			}
		}

		values := make([][]any, 0, len(table.Rows)+1)
		header := make([]any, len(table.Columns))
		for i, col := range table.Columns {
			header[i] = col
		}
		values = append(values, header)
		for _, row := range table.Rows {
			cells := make([]any, len(row))
			for i, v := range row {
				cells[i] = v
			}
			values = append(values, cells)
		}

		clearReq := w.service.Spreadsheets.Values.Clear(w.config.SpreadsheetID, table.Name, &sheets.ClearValuesRequest{})
		if _, err := clearReq.Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear sheet %s: %w", table.Name, err)
		}

		updateReq := w.service.Spreadsheets.Values.Update(
			w.config.SpreadsheetID,
			fmt.Sprintf("%s!A1", table.Name),
			&sheets.ValueRange{Values: values},
		).ValueInputOption("RAW")
		if _, err := updateReq.Context(ctx).Do(); err != nil {
			return fmt.Errorf("update sheet %s: %w", table.Name, err)
		}

		slog.Debug("Exported table to Google Sheets", "table", table.Name, "rows", len(table.Rows))
	}

	slog.Info("Exported report to Google Sheets",
		"spreadsheet_id", w.config.SpreadsheetID,
		"tables", len(tables))
	return nil
}

func (w *Writer) existingSheets(ctx context.Context) (map[string]bool, error) {
	spreadsheet, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}

	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil {
			existing[s.Properties.Title] = true
		}
	}
	return existing, nil
}

func (w *Writer) addSheet(ctx context.Context, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}
