package extractor

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/font"
	"github.com/tsawler/tabula/text"
)

// maxFormDepth bounds how deeply nested Form XObjects are followed.
const maxFormDepth = 8

// contentstream.Parser keeps its operand stack in a package variable.
var parseMu sync.Mutex

// pageContent is a page's content stream with every Form XObject it paints
// inlined in place of its Do operator.
type pageContent struct {
	ops []contentstream.Operation
	// inForm[i] reports whether ops[i] came from a form.
	inForm []bool
	// fonts used by form text, keyed the way text.Extractor looks them up.
	fonts map[string]*font.Font
}

func readPageContent(page pdf.Page) (*pageContent, error) {
	contents := page.V.Key("Contents")

	var streams []pdf.Value
	switch contents.Kind() {
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			streams = append(streams, contents.Index(i))
		}
	case pdf.Stream:
		streams = append(streams, contents)
	}

	pc := &pageContent{fonts: make(map[string]*font.Font)}
	for _, strm := range streams {
		ops, err := parseStream(strm)
		if err != nil {
			return nil, err
		}
		if err := pc.add(ops, page.Resources(), nil); err != nil {
			return nil, err
		}
	}

	return pc, nil
}

func parseStream(strm pdf.Value) ([]contentstream.Operation, error) {
	data, err := readAll(strm)
	if err != nil {
		return nil, fmt.Errorf("failed to read content stream: %w", err)
	}

	parseMu.Lock()
	defer parseMu.Unlock()

	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse content stream: %w", err)
	}
	return ops, nil
}

// add appends ops, expanding Do operators that name a Form XObject in
// resources. chain holds the names of the forms being expanded.
func (pc *pageContent) add(ops []contentstream.Operation, resources pdf.Value, chain []string) error {
	inForm := len(chain) > 0
	prefix := strings.Join(chain, ".")

	for _, op := range ops {
		switch op.Operator {
		case "Do":
			if err := pc.addForm(op, resources, chain); err != nil {
				return err
			}
			continue
		case "Tf":
			if inForm && len(op.Operands) == 2 {
				op = pc.formFont(op, resources, prefix)
			}
		}

		pc.ops = append(pc.ops, op)
		pc.inForm = append(pc.inForm, inForm)
	}

	return nil
}

func (pc *pageContent) addForm(op contentstream.Operation, resources pdf.Value, chain []string) error {
	if len(op.Operands) != 1 || len(chain) >= maxFormDepth {
		return nil
	}
	n, ok := op.Operands[0].(core.Name)
	if !ok {
		return nil
	}
	name := strings.TrimPrefix(string(n), "/")
	for _, c := range chain {
		if c == name {
			return nil
		}
	}

	form := resources.Key("XObject").Key(name)
	if form.Kind() != pdf.Stream || form.Key("Subtype").Name() != "Form" {
		return nil
	}

	ops, err := parseStream(form)
	if err != nil {
		return fmt.Errorf("form %s: %w", name, err)
	}

	formResources := form.Key("Resources")
	if formResources.IsNull() {
		formResources = resources
	}

	mark := len(chain) > 0
	pc.ops = append(pc.ops, contentstream.Operation{Operator: "q"})
	pc.inForm = append(pc.inForm, mark)
	if m := form.Key("Matrix"); m.Len() == 6 {
		operands := make([]core.Object, 6)
		for i := range operands {
			operands[i] = core.Real(m.Index(i).Float64())
		}
		pc.ops = append(pc.ops, contentstream.Operation{Operator: "cm", Operands: operands})
		pc.inForm = append(pc.inForm, mark)
	}

	next := append(append([]string{}, chain...), name)
	if err := pc.add(ops, formResources, next); err != nil {
		return err
	}

	pc.ops = append(pc.ops, contentstream.Operation{Operator: "Q"})
	pc.inForm = append(pc.inForm, mark)
	return nil
}

// formFont renames the font of a Tf operator inside a form so fonts of
// different forms cannot collide, and registers it for text extraction.
func (pc *pageContent) formFont(op contentstream.Operation, resources pdf.Value, prefix string) contentstream.Operation {
	n, ok := op.Operands[0].(core.Name)
	if !ok {
		return op
	}
	name := strings.TrimPrefix(string(n), "/")
	key := prefix + "." + name

	if _, ok := pc.fonts["/"+key]; !ok {
		fv := resources.Key("Font").Key(name)
		f := font.NewFont(key, fv.Key("BaseFont").Name(), fv.Key("Subtype").Name())
		if cmap := fv.Key("ToUnicode"); cmap.Kind() == pdf.Stream {
			if data, err := readAll(cmap); err == nil {
				if parsed, err := font.ParseToUnicodeCMap(&core.Stream{Dict: core.Dict{}, Data: data}); err == nil {
					f.ToUnicodeCMap = parsed
				}
			}
		}
		pc.fonts["/"+key] = f
	}

	return contentstream.Operation{
		Operator: op.Operator,
		Operands: []core.Object{core.Name(key), op.Operands[1]},
	}
}

func readAll(strm pdf.Value) ([]byte, error) {
	rd := strm.Reader()
	defer rd.Close()
	return io.ReadAll(rd)
}

// formText returns the text painted by forms on the page, positioned in page
// space. Text painted directly by the page is left to pdf.Page.Content.
func (pc *pageContent) formText() ([]pdf.Text, error) {
	hasForm := false
	ops := make([]contentstream.Operation, 0, len(pc.ops))
	for i, op := range pc.ops {
		if pc.inForm[i] {
			hasForm = true
		} else if showsText(op.Operator) {
			continue
		}
		ops = append(ops, op)
	}
	if !hasForm {
		return nil, nil
	}

	ex := text.NewExtractor()
	for name, f := range pc.fonts {
		ex.RegisterParsedFont(name, f)
	}

	fragments, err := ex.Extract(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to read form text: %w", err)
	}

	glyphs := make([]pdf.Text, 0, len(fragments))
	for _, f := range fragments {
		glyphs = append(glyphs, pdf.Text{
			Font:     f.FontName,
			FontSize: f.FontSize,
			X:        f.X,
			Y:        f.Y,
			W:        f.Width,
			S:        f.Text,
		})
	}
	return glyphs, nil
}

func showsText(op string) bool {
	switch op {
	case "Tj", "TJ", "'", "\"":
		return true
	}
	return false
}
