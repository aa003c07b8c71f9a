package extractor

import (
	"bytes"
	"fmt"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/ledongthuc/pdf"
)

// Options tunes ruling-line detection. Distances are in PDF points.
type Options struct {
	// Positions of parallel edges closer than this are treated as one line.
	SnapTolerance float64
	// Collinear edges separated by at most this gap are joined.
	JoinTolerance float64
	// How far an edge may stop short of another and still cross it.
	IntersectionTolerance float64
	// Edges shorter than this are ignored.
	MinEdgeLength float64
}

// DefaultOptions returns the tolerances used when none are configured.
func DefaultOptions() Options {
	return Options{
		SnapTolerance:         3,
		JoinTolerance:         3,
		IntersectionTolerance: 3,
		MinEdgeLength:         3,
	}
}

// PageError records a page that could not be read.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e PageError) Unwrap() error {
	return e.Err
}

// Document is the result of scanning a PDF for tables.
type Document struct {
	Pages   int
	Tables  []table.Table
	Skipped []PageError
}

// ExtractTables detects ruled tables on every page of a PDF. Tables come back
// in page order, and top to bottom then left to right within a page. A
// document without tables is not an error; Document.Tables is empty.
func ExtractTables(data []byte, opts Options) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	doc = &Document{
		Pages:  pdfReader.NumPage(),
		Tables: []table.Table{},
	}

	for i := 1; i <= doc.Pages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		tables, err := pageTables(page, i, opts)
		if err != nil {
			// Keep going with the other pages.
			doc.Skipped = append(doc.Skipped, PageError{Page: i, Err: err})
			continue
		}

		doc.Tables = append(doc.Tables, tables...)
	}

	return doc, nil
}

func pageTables(page pdf.Page, pageNum int, opts Options) (tables []table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables, err = nil, fmt.Errorf("malformed page content: %v", r)
		}
	}()

	content, err := readPageContent(page)
	if err != nil {
		return nil, err
	}

	grids, err := detectGrids(content.ops, opts)
	if err != nil {
		return nil, err
	}
	if len(grids) == 0 {
		return nil, nil
	}

	glyphs := page.Content().Text
	formGlyphs, err := content.formText()
	if err != nil {
		return nil, err
	}
	glyphs = append(glyphs, formGlyphs...)

	for _, g := range grids {
		cells := fillGrid(g, glyphs)
		if cells == nil {
			continue
		}
		tables = append(tables, table.New(cells, pageNum))
	}

	return tables, nil
}

// fillGrid places each glyph in the cell containing its centre and returns
// the grid's text, or nil when the grid holds no text at all.
func fillGrid(g grid, glyphs []pdf.Text) [][]string {
	rows, cols := len(g.rows)-1, len(g.cols)-1

	byCell := make([][][]pdf.Text, rows)
	for i := range byCell {
		byCell[i] = make([][]pdf.Text, cols)
	}

	found := false
	for _, glyph := range glyphs {
		if i, j, ok := g.cellAt(glyphCenter(glyph)); ok {
			byCell[i][j] = append(byCell[i][j], glyph)
			found = true
		}
	}
	if !found {
		return nil
	}

	cells := make([][]string, rows)
	hasText := false
	for i := range cells {
		cells[i] = make([]string, cols)
		for j := range cells[i] {
			cells[i][j] = cellText(byCell[i][j])
			if cells[i][j] != "" {
				hasText = true
			}
		}
	}
	if !hasText {
		return nil
	}

	return cells
}
