package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/artifact"
	"github.com/xuri/excelize/v2"
)

// Emitter writes report files into the output directory, registering each
// with the artifact manager. Per-table CSVs are intermediates; the
// consolidated Excel workbook and the JSON report are the final artifacts
// that survive cleanup.
type Emitter struct {
	artifacts *artifact.Manager
	dir       string
	stamp     string
}

// NewEmitter creates an emitter for one run's output directory.
func NewEmitter(dir string, artifacts *artifact.Manager) (*Emitter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Emitter{
		artifacts: artifacts,
		dir:       dir,
		stamp:     time.Now().Format("20060102"),
	}, nil
}

// EmitCSV writes one CSV file per table and returns the paths.
func (e *Emitter) EmitCSV(tables []Table) ([]string, error) {
	var paths []string
	for _, table := range tables {
		path := filepath.Join(e.dir, fmt.Sprintf("form4_%s_%s.csv", table.Name, e.stamp))

		f, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("create %s: %w", path, err)
		}

		w := csv.NewWriter(f)
		if err := w.Write(table.Columns); err != nil {
			_ = f.Close()
			return paths, fmt.Errorf("write %s header: %w", path, err)
		}
		if err := w.WriteAll(table.Rows); err != nil {
			_ = f.Close()
			return paths, fmt.Errorf("write %s rows: %w", path, err)
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("close %s: %w", path, err)
		}

		e.artifacts.Track(path, artifact.RoleIntermediate)
		paths = append(paths, path)
	}
	return paths, nil
}

// EmitJSON writes the consolidated JSON report: one object keyed by table
// name, each table an array of records keyed by column name.
func (e *Emitter) EmitJSON(tables []Table) (string, error) {
	doc := make(map[string][]map[string]string, len(tables))
	for _, table := range tables {
		records := make([]map[string]string, 0, len(table.Rows))
		for _, row := range table.Rows {
			record := make(map[string]string, len(table.Columns))
			for i, col := range table.Columns {
				if i < len(row) {
					record[col] = row[i]
				}
			}
			records = append(records, record)
		}
		doc[table.Name] = records
	}

	path := filepath.Join(e.dir, fmt.Sprintf("form4_report_%s.json", e.stamp))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode JSON report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	e.artifacts.Track(path, artifact.RoleFinal)
	return path, nil
}

// EmitExcel writes the consolidated workbook, one sheet per table.
func (e *Emitter) EmitExcel(tables []Table) (string, error) {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	for i, table := range tables {
		sheet := table.Name
		if i == 0 {
			// The default sheet becomes the first table.
			if err := wb.SetSheetName("Sheet1", sheet); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := wb.NewSheet(sheet); err != nil {
				return "", fmt.Errorf("add sheet %s: %w", sheet, err)
			}
		}

		header := make([]any, len(table.Columns))
		for c, col := range table.Columns {
			header[c] = col
		}
		if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
			return "", fmt.Errorf("write %s header: %w", sheet, err)
		}

		for rIdx, row := range table.Rows {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, rIdx+2)
			if err != nil {
				return "", fmt.Errorf("cell name: %w", err)
			}
			if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
				return "", fmt.Errorf("write %s row %d: %w", sheet, rIdx, err)
			}
		}
	}

	path := filepath.Join(e.dir, fmt.Sprintf("form4_report_%s.xlsx", e.stamp))
	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	e.artifacts.Track(path, artifact.RoleFinal)
	return path, nil
}
