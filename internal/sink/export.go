package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	recordsSheet = "Records"
	errorsSheet  = "Errors"
)

// ExportStats summarizes a workbook export.
type ExportStats struct {
	Records int
	Errors  int
	Path    string
}

// ExportWorkbook copies the records table and the error log into an XLSX
// workbook with one sheet each. Missing tables produce empty sheets.
func ExportWorkbook(recordsPath, errorsPath, out string) (ExportStats, error) {
	f := excelize.NewFile()
	defer f.Close()

	stats := ExportStats{Path: out}

	if _, err := f.NewSheet(recordsSheet); err != nil {
		return stats, fmt.Errorf("create records sheet: %w", err)
	}
	if _, err := f.NewSheet(errorsSheet); err != nil {
		return stats, fmt.Errorf("create errors sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return stats, fmt.Errorf("remove default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return stats, fmt.Errorf("create header style: %w", err)
	}

	n, err := copyTable(f, recordsSheet, recordsPath, bold)
	if err != nil {
		return stats, err
	}
	stats.Records = n
	if err := f.SetColWidth(recordsSheet, "A", "A", 28); err != nil {
		return stats, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(recordsSheet, "B", "Z", 18); err != nil {
		return stats, fmt.Errorf("set column width: %w", err)
	}

	n, err = copyTable(f, errorsSheet, errorsPath, bold)
	if err != nil {
		return stats, err
	}
	stats.Errors = n
	if err := f.SetColWidth(errorsSheet, "A", "A", 28); err != nil {
		return stats, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(errorsSheet, "B", "B", 60); err != nil {
		return stats, fmt.Errorf("set column width: %w", err)
	}

	if idx, err := f.GetSheetIndex(recordsSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := f.SaveAs(out); err != nil {
		return stats, fmt.Errorf("write workbook %s: %w", out, err)
	}
	return stats, nil
}

// copyTable writes every row of the CSV at path into sheet and returns the
// number of data rows copied.
func copyTable(f *excelize.File, sheet, path string, headerStyle int) (int, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rowIndex := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		rowIndex++
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIndex)
			if err != nil {
				return 0, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return 0, fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
		if rowIndex == 1 && len(row) > 0 {
			last, err := excelize.CoordinatesToCellName(len(row), 1)
			if err != nil {
				return 0, err
			}
			if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
				return 0, fmt.Errorf("style header: %w", err)
			}
			if err := f.SetPanes(sheet, &excelize.Panes{
				Freeze:      true,
				YSplit:      1,
				TopLeftCell: "A2",
				ActivePane:  "bottomLeft",
			}); err != nil {
				return 0, fmt.Errorf("freeze header: %w", err)
			}
		}
	}
	if rowIndex == 0 {
		return 0, nil
	}
	return rowIndex - 1, nil
}
