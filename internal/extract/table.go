// Package extract converts raw PDF bytes into tabular result sets and
// assembles them into a spreadsheet artifact. Detection runs an ordered
// strategy: structured extraction over the document's text layer first,
// then a recognition fallback that reconstructs rows and columns from
// detected text positions and whitespace separators when the structured
// pass yields nothing usable.
package extract

// Table is one detected tabular result set. Tables are ordered by page,
// then by top-to-bottom detection order within a page.
type Table struct {
	PageNumber int        `json:"page_number"`
	Index      int        `json:"index"`
	Rows       [][]string `json:"rows"`
}

// Columns returns the width of the widest row.
func (t *Table) Columns() int {
	max := 0
	for _, row := range t.Rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// CellFillRatio returns the fraction of non-empty cells, measured
// against a rectangular grid of len(Rows) by Columns.
func (t *Table) CellFillRatio() float64 {
	cols := t.Columns()
	if cols == 0 || len(t.Rows) == 0 {
		return 0
	}

	filled := 0
	for _, row := range t.Rows {
		for _, cell := range row {
			if cell != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(len(t.Rows)*cols)
}

// Result is a successful extraction: at least one table plus any
// non-fatal warnings gathered along the way.
type Result struct {
	Tables   []Table  `json:"tables"`
	Warnings []string `json:"warnings,omitempty"`
}

func fillRatio(tables []Table) float64 {
	if len(tables) == 0 {
		return 0
	}

	var sum float64
	for i := range tables {
		sum += tables[i].CellFillRatio()
	}
	return sum / float64(len(tables))
}
