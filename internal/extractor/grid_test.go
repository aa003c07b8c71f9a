package extractor

import (
	"reflect"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
)

func parseOps(t *testing.T, src string) []contentstream.Operation {
	t.Helper()
	ops, err := contentstream.NewParser([]byte(src)).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return ops
}

func detect(t *testing.T, src string) []grid {
	t.Helper()
	grids, err := detectGrids(parseOps(t, src), DefaultOptions())
	if err != nil {
		t.Fatalf("detectGrids returned error: %v", err)
	}
	return grids
}

func TestDetectGridsSimpleGrid(t *testing.T) {
	grids := detect(t, `
0 100 m 100 100 l S
0 80 m 100 80 l S
0 60 m 100 60 l S
0 60 m 0 100 l S
50 60 m 50 100 l S
100 60 m 100 100 l S
`)

	if len(grids) != 1 {
		t.Fatalf("grids = %d, want 1", len(grids))
	}
	if want := []float64{100, 80, 60}; !reflect.DeepEqual(grids[0].rows, want) {
		t.Errorf("rows = %v, want %v", grids[0].rows, want)
	}
	if want := []float64{0, 50, 100}; !reflect.DeepEqual(grids[0].cols, want) {
		t.Errorf("cols = %v, want %v", grids[0].cols, want)
	}
}

func TestDetectGridsNeedsTwoRulesPerAxis(t *testing.T) {
	// A cross has one rule on each axis and encloses nothing.
	if grids := detect(t, "0 50 m 100 50 l S 50 0 m 50 100 l S"); len(grids) != 0 {
		t.Errorf("grids = %d, want 0", len(grids))
	}
}

func TestDetectGridsSnapsNearlyTouchingRules(t *testing.T) {
	// Rules drawn slightly short or off by a point still form a box.
	grids := detect(t, `
1 100 m 99 100 l S
0 61 m 100 61 l S
0 60 m 0 100 l S
101 62 m 101 98 l S
`)

	if len(grids) != 1 {
		t.Fatalf("grids = %d, want 1", len(grids))
	}
	if len(grids[0].rows) != 2 || len(grids[0].cols) != 2 {
		t.Errorf("grid = %+v, want a single cell", grids[0])
	}
}

func TestDetectGridsRectangles(t *testing.T) {
	// Stroked boxes and thin filled bars are both rules.
	boxes := detect(t, "0 60 50 40 re S 50 60 50 40 re S")
	if len(boxes) != 1 || len(boxes[0].cols) != 3 {
		t.Fatalf("boxes = %+v, want one grid with two columns", boxes)
	}

	bars := detect(t, `
0 99.75 100 0.5 re f
0 59.75 100 0.5 re f
-0.25 60 0.5 40 re f
99.75 60 0.5 40 re f
`)
	if len(bars) != 1 || len(bars[0].rows) != 2 || len(bars[0].cols) != 2 {
		t.Fatalf("bars = %+v, want one single-cell grid", bars)
	}
}

func TestDetectGridsSeparateTables(t *testing.T) {
	grids := detect(t, `
0 100 m 100 100 l S
0 80 m 100 80 l S
0 80 m 0 100 l S
100 80 m 100 100 l S
0 500 m 100 500 l S
0 480 m 100 480 l S
0 480 m 0 500 l S
100 480 m 100 500 l S
`)

	if len(grids) != 2 {
		t.Fatalf("grids = %d, want 2", len(grids))
	}
	if grids[0].rows[0] != 500 || grids[1].rows[0] != 100 {
		t.Errorf("order = %v, %v, want top table first", grids[0].rows, grids[1].rows)
	}
}

func TestDetectGridsFollowsTransform(t *testing.T) {
	grids := detect(t, "q 1 0 0 1 10 20 cm 0 0 50 20 re S Q")

	if len(grids) != 1 {
		t.Fatalf("grids = %d, want 1", len(grids))
	}
	if want := []float64{40, 20}; !reflect.DeepEqual(grids[0].rows, want) {
		t.Errorf("rows = %v, want %v", grids[0].rows, want)
	}
	if want := []float64{10, 60}; !reflect.DeepEqual(grids[0].cols, want) {
		t.Errorf("cols = %v, want %v", grids[0].cols, want)
	}
}

func TestClusterLinesJoinsCollinearRules(t *testing.T) {
	hline := func(y, x0, x1 float64) graphicsstate.ExtractedLine {
		return axisLine(model.Point{X: x0, Y: y}, model.Point{X: x1, Y: y})
	}
	vline := func(x, y0, y1 float64) graphicsstate.ExtractedLine {
		return axisLine(model.Point{X: x, Y: y0}, model.Point{X: x, Y: y1})
	}

	hs := []graphicsstate.ExtractedLine{hline(100, 0, 48), hline(100, 50, 100), hline(300, 0, 100)}
	vs := []graphicsstate.ExtractedLine{vline(0, 60, 100)}

	clusters := clusterLines(hs, vs, DefaultOptions())
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}
	if len(clusters[0].hs) != 2 || len(clusters[0].vs) != 1 {
		t.Errorf("first cluster = %d horizontal, %d vertical", len(clusters[0].hs), len(clusters[0].vs))
	}
}

func TestGridCellAt(t *testing.T) {
	g := grid{rows: []float64{100, 80, 60}, cols: []float64{0, 50, 100}}

	testCases := []struct {
		p        model.Point
		row, col int
		ok       bool
	}{
		{model.Point{X: 10, Y: 90}, 0, 0, true},
		{model.Point{X: 60, Y: 70}, 1, 1, true},
		{model.Point{X: 50, Y: 80}, 1, 1, true},
		{model.Point{X: 110, Y: 90}, -1, -1, false},
		{model.Point{X: 10, Y: 50}, -1, 0, false},
	}
	for _, tc := range testCases {
		row, col, ok := g.cellAt(tc.p)
		if ok != tc.ok || (ok && (row != tc.row || col != tc.col)) {
			t.Errorf("cellAt(%v) = %d, %d, %v, want %d, %d, %v", tc.p, row, col, ok, tc.row, tc.col, tc.ok)
		}
	}
}

func TestCellText(t *testing.T) {
	glyphs := []pdf.Text{
		{X: 10, Y: 100, W: 6, FontSize: 10, S: "R"},
		{X: 16, Y: 100, W: 6, FontSize: 10, S: "a"},
		{X: 22, Y: 100, W: 6, FontSize: 10, S: "m"},
		{X: 34, Y: 100, W: 6, FontSize: 10, S: "S"},
		{X: 10, Y: 88, W: 6, FontSize: 10, S: "4"},
		{X: 16, Y: 88, W: 6, FontSize: 10, S: "0"},
	}

	if got := cellText(glyphs); got != "Ram S\n40" {
		t.Errorf("cellText = %q, want %q", got, "Ram S\n40")
	}
	if got := cellText(nil); got != "" {
		t.Errorf("cellText(nil) = %q", got)
	}
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"  Ram\x00  Singh ", "Ram Singh"},
		{"a\r\n\r\nb", "a\nb"},
		{"e\u0301", "\u00e9"},
		{"\t \n", ""},
	}
	for _, tc := range testCases {
		if got := cleanText(tc.in); got != tc.want {
			t.Errorf("cleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
