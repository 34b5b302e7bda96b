package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 8.0
	maxColWidth = 60.0
)

// Workbook renders the extracted tables as an xlsx document, one sheet
// per table in page order. Sheet names carry the source location so a
// reader can trace each sheet back to the document.
func Workbook(tables []Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("workbook requires at least one table")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		name := fmt.Sprintf("Page %d Table %d", t.PageNumber, t.Index+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("adding sheet %q: %w", name, err)
			}
		}

		widths := make([]float64, t.Columns())
		for r, row := range t.Rows {
			for c, cell := range row {
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, fmt.Errorf("cell reference: %w", err)
				}
				if err := f.SetCellValue(name, ref, cell); err != nil {
					return nil, fmt.Errorf("writing cell %s: %w", ref, err)
				}
				if w := float64(len(cell)) * 1.1; w > widths[c] {
					widths[c] = w
				}
			}
		}

		for c, w := range widths {
			if w < minColWidth {
				w = minColWidth
			}
			if w > maxColWidth {
				w = maxColWidth
			}
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return nil, fmt.Errorf("column name: %w", err)
			}
			if err := f.SetColWidth(name, col, col, w); err != nil {
				return nil, fmt.Errorf("column width: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
