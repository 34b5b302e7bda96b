package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/sheetdrop/sheetdrop/internal/config"
)

// Engine runs table extraction over PDF documents.
type Engine struct {
	cfg    config.ExtractionConfig
	logger *slog.Logger
}

// NewEngine creates an extraction engine.
func NewEngine(cfg config.ExtractionConfig, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger.With("system", "extract"),
	}
}

// Extract detects tables in the given document. A non-nil error is
// always a *Failure classifying the outcome; callers branch on its
// Kind to decide between retry and terminal failure.
func (e *Engine) Extract(ctx context.Context, data []byte) (*Result, error) {
	pages, err := e.validate(data)
	if err != nil {
		return nil, err
	}

	settings := structuredSettings{
		minRows:    e.cfg.MinRows,
		minColumns: e.cfg.MinColumns,
	}

	reader, err := newPageReader(data)
	if err != nil {
		return nil, unparsable("opening document", err)
	}

	var (
		structured []Table
		warnings   []string
	)
	for p := 1; p <= pages; p++ {
		if err := ctx.Err(); err != nil {
			return nil, transient("extraction interrupted", err)
		}

		lines, err := reader.pageLines(p)
		if err != nil {
			warnings = append(warnings, pageWarning(p, err))
			continue
		}

		found := structuredTables(lines, settings)
		for i := range found {
			found[i].PageNumber = p
			found[i].Index = len(structured) + i
		}
		structured = append(structured, found...)
	}

	if len(structured) > 0 && fillRatio(structured) >= e.cfg.MinCellFill {
		e.logger.Debug("structured extraction accepted",
			"tables", len(structured),
			"fill_ratio", fillRatio(structured))
		return &Result{Tables: structured, Warnings: warnings}, nil
	}

	// The structured pass found nothing trustworthy. Re-run each page
	// with the recognition strategy before giving up.
	e.logger.Debug("structured extraction insufficient, running recognition fallback",
		"tables", len(structured))

	var recognized []Table
	for p := 1; p <= pages; p++ {
		if err := ctx.Err(); err != nil {
			return nil, transient("extraction interrupted", err)
		}

		lines, err := reader.pageLines(p)
		if err != nil {
			continue
		}

		found := recognizedTables(lines, settings)
		for i := range found {
			found[i].PageNumber = p
			found[i].Index = len(recognized) + i
		}
		recognized = append(recognized, found...)
	}

	if len(recognized) > 0 {
		warnings = append(warnings, "structured extraction was inconclusive, results come from layout recognition")
		return &Result{Tables: recognized, Warnings: warnings}, nil
	}

	return nil, noTables()
}

// validate confirms the bytes are a readable, unencrypted PDF and
// returns its page count.
func (e *Engine) validate(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, unparsable("document is empty", nil)
	}

	pages, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, unparsable("document failed validation", err)
	}
	if pages == 0 {
		return 0, unparsable("document has no pages", nil)
	}
	return pages, nil
}

// pageReader wraps the text-layer reader so a malformed content stream
// surfaces as an error instead of a panic.
type pageReader struct {
	r *pdf.Reader
}

func newPageReader(data []byte) (pr *pageReader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reader panic: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &pageReader{r: r}, nil
}

func (pr *pageReader) pageLines(number int) (lines []line, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("content stream panic: %v", rec)
		}
	}()

	page := pr.r.Page(number)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is missing", number)
	}

	content := page.Content()
	fragments := make([]fragment, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		fragments = append(fragments, fragment{
			text:     t.S,
			x:        t.X,
			y:        t.Y,
			w:        t.W,
			fontSize: t.FontSize,
		})
	}
	return assembleWords(fragments), nil
}
