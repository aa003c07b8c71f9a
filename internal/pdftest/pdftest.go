// Package pdftest writes small, valid PDF documents with ruling lines and
// Courier text for use in tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Line is a stroked straight line in page space.
type Line struct {
	X0, Y0, X1, Y1 float64
}

// Rect is a filled rectangle in page space.
type Rect struct {
	X, Y, W, H float64
}

// Text is a run of Courier text with its baseline origin at X, Y.
type Text struct {
	X, Y float64
	Size float64
	S    string
}

// Page is the content of one page. When Translate is non-zero the whole page
// is drawn under a "1 0 0 1 tx ty cm" transform. When Form is set the content
// lives in a Form XObject /Fm1 that the page paints with Do; FormOffset
// becomes the translation in the form's /Matrix.
type Page struct {
	Lines      []Line
	Rects      []Rect
	Texts      []Text
	Translate  [2]float64
	Form       bool
	FormOffset [2]float64
}

// Merge returns a page with the content of p and q.
func (p Page) Merge(q Page) Page {
	p.Lines = append(append([]Line{}, p.Lines...), q.Lines...)
	p.Rects = append(append([]Rect{}, p.Rects...), q.Rects...)
	p.Texts = append(append([]Text{}, p.Texts...), q.Texts...)
	return p
}

// Grid lays out a ruled table whose top-left corner is at (left, top). Each
// row is rowHeight tall and each column colWidth wide; cells[0] is the header.
func Grid(left, top, colWidth, rowHeight float64, cells [][]string) Page {
	var page Page
	if len(cells) == 0 {
		return page
	}

	cols := 0
	for _, row := range cells {
		if len(row) > cols {
			cols = len(row)
		}
	}
	right := left + float64(cols)*colWidth
	bottom := top - float64(len(cells))*rowHeight

	for i := 0; i <= len(cells); i++ {
		y := top - float64(i)*rowHeight
		page.Lines = append(page.Lines, Line{left, y, right, y})
	}
	for j := 0; j <= cols; j++ {
		x := left + float64(j)*colWidth
		page.Lines = append(page.Lines, Line{x, top, x, bottom})
	}

	for i, row := range cells {
		for j, s := range row {
			if s == "" {
				continue
			}
			page.Texts = append(page.Texts, Text{
				X:    left + float64(j)*colWidth + 3,
				Y:    top - float64(i+1)*rowHeight + 5,
				Size: 9,
				S:    s,
			})
		}
	}

	return page
}

// RuledGrid is Grid drawn with thin filled rectangles instead of stroked
// lines, the way many report generators draw table rules.
func RuledGrid(left, top, colWidth, rowHeight float64, cells [][]string) Page {
	page := Grid(left, top, colWidth, rowHeight, cells)
	for _, l := range page.Lines {
		if l.Y0 == l.Y1 {
			page.Rects = append(page.Rects, Rect{l.X0, l.Y0 - 0.25, l.X1 - l.X0, 0.5})
		} else {
			page.Rects = append(page.Rects, Rect{l.X0 - 0.25, l.Y1, 0.5, l.Y0 - l.Y1})
		}
	}
	page.Lines = nil
	return page
}

// Build renders the pages into a complete PDF file.
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{{}}
	}

	// 1 catalog, 2 pages, 3 font, then per page a page object, its content
	// stream and, for form pages, the Form XObject.
	objects := make([]string, 3)
	add := func(obj string) int {
		objects = append(objects, obj)
		return len(objects)
	}
	const resources = "/Font << /F1 3 0 R >>"

	kids := make([]string, len(pages))
	for i, p := range pages {
		content := p.content()
		pageResources := resources

		if p.Form {
			form := add(fmt.Sprintf("<< /Type /XObject /Subtype /Form /BBox [0 0 612 792] "+
				"/Matrix [1 0 0 1 %s %s] /Resources << %s >> /Length %d >>\nstream\n%s\nendstream",
				num(p.FormOffset[0]), num(p.FormOffset[1]), resources, len(content), content))
			pageResources = fmt.Sprintf("%s /XObject << /Fm1 %d 0 R >>", resources, form)
			content = "q /Fm1 Do Q"
		}

		stream := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
		page := add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << %s >> /Contents %d 0 R >>", pageResources, stream))
		kids[i] = fmt.Sprintf("%d 0 R", page)
	}

	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))
	objects[2] = fontObject()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func fontObject() string {
	widths := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		widths = append(widths, "600")
	}
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + strings.Join(widths, " ") + "] >>"
}

func (p Page) content() string {
	var b strings.Builder

	transformed := p.Translate != [2]float64{}
	if transformed {
		fmt.Fprintf(&b, "q 1 0 0 1 %s %s cm\n", num(p.Translate[0]), num(p.Translate[1]))
	}

	if len(p.Lines) > 0 {
		b.WriteString("0.5 w\n")
	}
	for _, l := range p.Lines {
		fmt.Fprintf(&b, "%s %s m %s %s l S\n", num(l.X0), num(l.Y0), num(l.X1), num(l.Y1))
	}
	for _, r := range p.Rects {
		fmt.Fprintf(&b, "%s %s %s %s re f\n", num(r.X), num(r.Y), num(r.W), num(r.H))
	}
	for _, t := range p.Texts {
		size := t.Size
		if size == 0 {
			size = 10
		}
		fmt.Fprintf(&b, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(size), num(t.X), num(t.Y), escape(t.S))
	}

	if transformed {
		b.WriteString("Q\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func num(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
