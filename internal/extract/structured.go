package extract

import (
	"sort"
	"strings"
)

const (
	// blockGapFactor separates table candidates when a vertical gap
	// exceeds this multiple of the median line spacing.
	blockGapFactor = 2.5

	// columnTol is the horizontal tolerance, in points, when matching a
	// word's left edge against a column boundary.
	columnTol = 4.0

	// columnConsensus is the fraction of lines in a block that must open
	// a cell at a column boundary for the boundary to count.
	columnConsensus = 0.6
)

// structuredSettings gates how small a candidate grid may be before it
// is discarded as ordinary prose.
type structuredSettings struct {
	minRows    int
	minColumns int
}

// structuredTables runs the primary strategy over one page: cluster the
// page's lines into vertically contiguous blocks, find consensus column
// boundaries inside each block, and keep blocks that form a grid of at
// least minRows by minColumns.
func structuredTables(lines []line, s structuredSettings) []Table {
	var tables []Table
	for _, block := range blocks(lines, blockGapFactor) {
		if len(block) < s.minRows {
			continue
		}

		cols := consensusColumns(block)
		if len(cols) < s.minColumns {
			continue
		}

		rows := make([][]string, 0, len(block))
		for _, ln := range block {
			rows = append(rows, splitAtColumns(ln, cols))
		}
		tables = append(tables, Table{Rows: rows})
	}
	return tables
}

// consensusColumns finds x positions where a clear majority of the
// block's lines start a word. Prose aligns only at the left margin and
// yields a single boundary; tabular layout aligns at every column.
func consensusColumns(block []line) []float64 {
	type bucket struct {
		x     float64
		count int
	}
	var buckets []bucket

	for _, ln := range block {
		for _, w := range ln.words {
			matched := false
			for i := range buckets {
				if w.x >= buckets[i].x-columnTol && w.x <= buckets[i].x+columnTol {
					// Running average keeps the boundary centered as
					// slightly jittered edges accumulate.
					buckets[i].x = (buckets[i].x*float64(buckets[i].count) + w.x) / float64(buckets[i].count+1)
					buckets[i].count++
					matched = true
					break
				}
			}
			if !matched {
				buckets = append(buckets, bucket{x: w.x, count: 1})
			}
		}
	}

	needed := int(float64(len(block)) * columnConsensus)
	if needed < 2 {
		needed = 2
	}

	var cols []float64
	for _, b := range buckets {
		if b.count >= needed {
			cols = append(cols, b.x)
		}
	}
	sort.Float64s(cols)
	return cols
}

// splitAtColumns assigns each word of a line to the rightmost column
// boundary at or left of the word's left edge, producing one cell per
// boundary. Words landing in the same cell join with a single space.
func splitAtColumns(ln line, cols []float64) []string {
	cells := make([]string, len(cols))
	for _, w := range ln.words {
		idx := 0
		for i, c := range cols {
			if w.x >= c-columnTol {
				idx = i
			}
		}
		if cells[idx] == "" {
			cells[idx] = w.text
		} else {
			cells[idx] += " " + w.text
		}
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
