package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/gomutex/godocx"
)

const tableStyle = "TableGrid"

// encodeDOCX writes the table as a (rows+1) x columns Word table with the
// header in row 0. Empty cells stay empty and each line of a multi-line cell
// becomes its own paragraph.
func encodeDOCX(t table.Table) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	tbl := doc.AddTable()
	tbl.Style(tableStyle)

	header := tbl.AddRow()
	for _, name := range t.Columns {
		cell := header.AddCell()
		for _, line := range strings.Split(name, "\n") {
			cell.AddParagraph(line)
		}
	}

	cols := t.Width()
	for _, row := range t.Rows {
		tr := tbl.AddRow()
		for j := 0; j < cols; j++ {
			var v string
			if j < len(row) {
				v = row[j]
			}
			cell := tr.AddCell()
			for _, line := range strings.Split(v, "\n") {
				cell.AddParagraph(line)
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	return buf.Bytes(), nil
}
