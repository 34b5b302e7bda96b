package extract

import (
	"fmt"
	"sort"
	"strings"
)

// word is one positioned run of text on a page. Coordinates follow PDF
// conventions: x grows rightward, y grows upward from the page bottom.
type word struct {
	text string
	x    float64
	y    float64
	w    float64
}

func (w word) right() float64 {
	return w.x + w.w
}

// line groups words sharing a baseline, ordered left to right.
type line struct {
	y     float64
	words []word
}

const (
	// baselineTol merges glyph runs whose baselines differ by less than
	// this many points into the same line.
	baselineTol = 2.0

	// glyphJoinGap is the maximum horizontal gap, in points, between two
	// runs that still belong to the same word.
	glyphJoinGap = 1.5
)

// fragment mirrors the positioned text runs a PDF content stream
// produces: frequently single glyphs or short runs that must be merged
// back into words before layout analysis.
type fragment struct {
	text     string
	x, y, w  float64
	fontSize float64
}

// assembleWords merges raw content-stream fragments into words, then
// groups them into baseline-ordered lines (top of page first).
func assembleWords(fragments []fragment) []line {
	if len(fragments) == 0 {
		return nil
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		if diff := fragments[i].y - fragments[j].y; diff > baselineTol || diff < -baselineTol {
			return fragments[i].y > fragments[j].y
		}
		return fragments[i].x < fragments[j].x
	})

	var lines []line
	current := line{y: fragments[0].y}
	var buf strings.Builder
	var wx, ww float64

	flushWord := func() {
		if buf.Len() == 0 {
			return
		}
		text := strings.TrimSpace(buf.String())
		if text != "" {
			current.words = append(current.words, word{text: text, x: wx, y: current.y, w: ww})
		}
		buf.Reset()
		ww = 0
	}
	flushLine := func() {
		flushWord()
		if len(current.words) > 0 {
			lines = append(lines, current)
		}
	}

	for _, f := range fragments {
		if f.y < current.y-baselineTol || f.y > current.y+baselineTol {
			flushLine()
			current = line{y: f.y}
		}

		joinGap := glyphJoinGap
		if f.fontSize > 0 {
			joinGap = f.fontSize * 0.25
		}

		if buf.Len() > 0 && f.x-(wx+ww) <= joinGap {
			buf.WriteString(f.text)
			ww = f.x + f.w - wx
		} else {
			flushWord()
			buf.WriteString(f.text)
			wx = f.x
			ww = f.w
		}
	}
	flushLine()

	return lines
}

// blocks splits lines into vertically contiguous groups. A gap larger
// than gapFactor times the median line spacing starts a new block;
// table boundaries almost always show up as such gaps.
func blocks(lines []line, gapFactor float64) [][]line {
	if len(lines) == 0 {
		return nil
	}
	if len(lines) == 1 {
		return [][]line{lines}
	}

	gaps := make([]float64, 0, len(lines)-1)
	for i := 1; i < len(lines); i++ {
		gaps = append(gaps, lines[i-1].y-lines[i].y)
	}

	median := medianOf(gaps)
	threshold := median * gapFactor
	if threshold <= 0 {
		threshold = 1
	}

	var out [][]line
	start := 0
	for i := 1; i < len(lines); i++ {
		if lines[i-1].y-lines[i].y > threshold {
			out = append(out, lines[start:i])
			start = i
		}
	}
	out = append(out, lines[start:])
	return out
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func pageWarning(page int, err error) string {
	return fmt.Sprintf("page %d skipped: %v", page, err)
}
