package extract

import "sort"

// minGutterWidth is the narrowest horizontal whitespace band, in
// points, treated as a column separator by the fallback strategy.
const minGutterWidth = 6.0

// recognizedTables is the fallback strategy. It ignores left-edge
// alignment entirely and instead looks for whitespace gutters: vertical
// bands that no word in the block crosses. Gutters partition the block
// into columns, and each line contributes one row. This recovers tables
// whose cells are ragged or centered and defeat the structured pass.
func recognizedTables(lines []line, s structuredSettings) []Table {
	var tables []Table
	for _, block := range blocks(lines, blockGapFactor) {
		if len(block) < s.minRows {
			continue
		}

		gutters := findGutters(block)
		if len(gutters)+1 < s.minColumns {
			continue
		}

		rows := make([][]string, 0, len(block))
		for _, ln := range block {
			rows = append(rows, splitAtGutters(ln, gutters))
		}
		tables = append(tables, Table{Rows: rows})
	}
	return tables
}

// findGutters returns the center x of every whitespace band at least
// minGutterWidth wide that spans the full height of the block.
func findGutters(block []line) []float64 {
	type span struct{ left, right float64 }
	var spans []span
	for _, ln := range block {
		for _, w := range ln.words {
			spans = append(spans, span{left: w.x, right: w.right()})
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].left < spans[j].left })

	// Merge overlapping word spans so the remaining gaps are bands no
	// word in the block crosses.
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.left <= last.right {
			if s.right > last.right {
				last.right = s.right
			}
		} else {
			merged = append(merged, s)
		}
	}

	var gutters []float64
	for i := 1; i < len(merged); i++ {
		gap := merged[i].left - merged[i-1].right
		if gap >= minGutterWidth {
			gutters = append(gutters, merged[i-1].right+gap/2)
		}
	}
	return gutters
}

// splitAtGutters buckets a line's words into the regions between
// gutters, yielding len(gutters)+1 cells.
func splitAtGutters(ln line, gutters []float64) []string {
	cells := make([]string, len(gutters)+1)
	for _, w := range ln.words {
		idx := 0
		for _, g := range gutters {
			if w.x > g {
				idx++
			}
		}
		if cells[idx] == "" {
			cells[idx] = w.text
		} else {
			cells[idx] += " " + w.text
		}
	}
	return cells
}
