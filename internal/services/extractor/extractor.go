// Package extractor pulls raw line-oriented text out of a PDF statement,
// page by page, with no semantic interpretation.
package extractor

import (
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ExtractionError is a fatal condition: the document is unreadable,
// encrypted, or has no extractable text layer. The run is not retried.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot extract text from %s", e.Path)
	}
	return fmt.Sprintf("cannot extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Line is one row of text as laid out in the document.
type Line struct {
	// Text row content with column gaps rendered as single spaces.
	Text string
	// Page 1-based page the row came from.
	Page int
	// Number 1-based row position across the whole document.
	Number int
}

// Extractor reads the text layer of a PDF document.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor.
func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Lines returns all text rows of the document in document order.
func (e *Extractor) Lines(path string) ([]Line, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	var lines []Line
	pages := reader.NumPage()
	for pageNum := 1; pageNum <= pages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows := assembleRows(page.Content().Text)
		e.logger.Debug("extracted page",
			zap.Int("page", pageNum),
			zap.Int("rows", len(rows)))

		for _, row := range rows {
			lines = append(lines, Line{Text: row, Page: pageNum, Number: len(lines) + 1})
		}
	}

	if len(lines) == 0 {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("document has no extractable text layer")}
	}

	e.logger.Info("extracted statement text",
		zap.String("path", path),
		zap.Int("pages", pages),
		zap.Int("lines", len(lines)))

	return lines, nil
}

// rowYTolerance glyphs whose baselines differ by no more than this many
// points belong to the same visual row.
const rowYTolerance = 2.0

// assembleRows rebuilds visual text rows from positioned glyph fragments.
// The text layer yields fragments with page coordinates but no layout, so
// rows are grouped by baseline and ordered left to right, with column gaps
// collapsed to a single space. The fixed column layout of the statement
// survives this, which is all the parser needs.
func assembleRows(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	// PDF origin is bottom-left: top rows have larger Y.
	sort.SliceStable(sorted, func(i, j int) bool {
		if diff := sorted[i].Y - sorted[j].Y; diff > rowYTolerance || diff < -rowYTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []string
	var row []byte
	prev := sorted[0]
	row = append(row, prev.S...)

	for _, t := range sorted[1:] {
		if prev.Y-t.Y > rowYTolerance {
			rows = append(rows, string(row))
			row = row[:0]
		} else if gap := t.X - (prev.X + prev.W); gap > spaceGap(prev.FontSize) {
			row = append(row, ' ')
		}
		row = append(row, t.S...)
		prev = t
	}
	rows = append(rows, string(row))

	return rows
}

// spaceGap returns the horizontal gap beyond which two fragments are
// separate words.
func spaceGap(fontSize float64) float64 {
	gap := fontSize * 0.2
	if gap < 1 {
		gap = 1
	}
	return gap
}
