package extractor

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula/model"
	"golang.org/x/text/unicode/norm"
)

// glyphCenter approximates the middle of a glyph's box from its baseline
// origin, advance width and font size.
func glyphCenter(g pdf.Text) model.Point {
	return model.Point{
		X: g.X + g.W/2,
		Y: g.Y + glyphHeight(g)*0.35,
	}
}

func glyphHeight(g pdf.Text) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return 1
}

// cellText assembles the glyphs of one cell into text: glyphs are grouped
// into lines by baseline, ordered left to right, and a space is inserted
// where the gap between glyphs is visible.
func cellText(glyphs []pdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}

	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines [][]pdf.Text
	var current []pdf.Text
	baseline := sorted[0].Y
	for _, g := range sorted {
		if len(current) > 0 && math.Abs(g.Y-baseline) > glyphHeight(g)*0.5 {
			lines = append(lines, current)
			current = nil
		}
		if len(current) == 0 {
			baseline = g.Y
		}
		current = append(current, g)
	}
	lines = append(lines, current)

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].X < line[j].X
		})

		var b strings.Builder
		for i, g := range line {
			if i > 0 {
				prev := line[i-1]
				gap := g.X - (prev.X + prev.W)
				if gap > glyphHeight(g)*0.2 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
					b.WriteByte(' ')
				}
			}
			b.WriteString(g.S)
		}
		out = append(out, b.String())
	}

	return cleanText(strings.Join(out, "\n"))
}

// cleanText normalises cell text: NUL bytes and carriage returns are
// removed, runs of spaces collapse to one, blank lines are dropped and the
// result is NFC normalised.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")

	var cleanedLines []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return norm.NFC.String(strings.Join(cleanedLines, "\n"))
}
