package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const defaultColWidth = 22

// Filename builds the workbook name for a run date, e.g.
// WWSAssetUpdates_20260826.xlsx.
func Filename(prefix string, today time.Time) string {
	return prefix + today.Format("20060102") + ".xlsx"
}

// WriteWorkbook renders one worksheet per sheet entry and returns the
// finished xlsx bytes. Sheets keep the order they are given in; the first
// sheet is the active one.
func WriteWorkbook(sheets []Sheet) ([]byte, error) {
	f := excelize.NewFile()
	// Note: don't defer Close() here, WriteTo needs the file to be open.

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range sheets {
		index, err := f.NewSheet(sheet.Name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	// Drop the implicit default sheet.
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	for col, header := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet.Name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet.Name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet.Name, name, name, defaultColWidth); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, row := range sheet.Rows {
		for colIdx, value := range row {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// Freeze the header row.
	if err := f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes on %q: %w", sheet.Name, err)
	}
	return nil
}

// WriteWorkbookFile renders the workbook and writes it under dir, creating
// the directory when missing. It returns the written path.
func WriteWorkbookFile(dir, prefix string, today time.Time, sheets []Sheet) (string, error) {
	data, err := WriteWorkbook(sheets)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, Filename(prefix, today))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return path, nil
}
