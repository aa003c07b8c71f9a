package extractor

import (
	"math"
	"sort"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/tables"
)

// grid is a detected ruled table. rows holds the Y of each horizontal rule
// from top to bottom and cols the X of each vertical rule from left to right.
type grid struct {
	rows []float64
	cols []float64
}

// cellAt returns the row and column of the cell containing p.
func (g grid) cellAt(p model.Point) (int, int, bool) {
	row, col := -1, -1
	for i := 0; i+1 < len(g.rows); i++ {
		if p.Y <= g.rows[i] && p.Y > g.rows[i+1] {
			row = i
			break
		}
	}
	for j := 0; j+1 < len(g.cols); j++ {
		if p.X >= g.cols[j] && p.X < g.cols[j+1] {
			col = j
			break
		}
	}
	return row, col, row >= 0 && col >= 0
}

// detectGrids finds the ruled tables painted by ops, top to bottom then left
// to right.
func detectGrids(ops []contentstream.Operation, opts Options) ([]grid, error) {
	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.Extract(ops); err != nil {
		return nil, err
	}

	hs, vs := ruleLines(ge, opts.MinEdgeLength)
	if len(hs) < 2 || len(vs) < 2 {
		return nil, nil
	}

	detector := tables.NewGridDetector()
	detector.AlignmentTolerance = opts.SnapTolerance
	detector.MinLineLength = opts.MinEdgeLength

	var grids []grid
	for _, c := range clusterLines(hs, vs, opts) {
		for _, h := range detector.DetectFromLines(c.hs, c.vs) {
			tg := h.ToTableGrid()
			grids = append(grids, grid{rows: tg.Rows, cols: tg.Cols})
		}
	}

	sort.SliceStable(grids, func(i, j int) bool {
		if grids[i].rows[0] != grids[j].rows[0] {
			return grids[i].rows[0] > grids[j].rows[0]
		}
		return grids[i].cols[0] < grids[j].cols[0]
	})

	return grids, nil
}

// ruleLines collects the horizontal and vertical rules of a page. Closed
// rectangles contribute their four edges, so boxes and thin filled bars both
// count as rules.
func ruleLines(ge *graphicsstate.GraphicsExtractor, minLength float64) (hs, vs []graphicsstate.ExtractedLine) {
	add := func(l graphicsstate.ExtractedLine) {
		switch {
		case l.IsHorizontal && l.BBox.Width >= minLength:
			hs = append(hs, l)
		case l.IsVertical && l.BBox.Height >= minLength:
			vs = append(vs, l)
		}
	}

	for _, l := range ge.GetLines() {
		add(l)
	}
	for _, r := range ge.GetRectangles() {
		for _, e := range rectEdges(r.BBox) {
			add(e)
		}
	}

	return hs, vs
}

func rectEdges(b model.BBox) []graphicsstate.ExtractedLine {
	bl := model.Point{X: b.Left(), Y: b.Bottom()}
	br := model.Point{X: b.Right(), Y: b.Bottom()}
	tl := model.Point{X: b.Left(), Y: b.Top()}
	tr := model.Point{X: b.Right(), Y: b.Top()}

	return []graphicsstate.ExtractedLine{
		axisLine(bl, br),
		axisLine(tl, tr),
		axisLine(bl, tl),
		axisLine(br, tr),
	}
}

func axisLine(a, b model.Point) graphicsstate.ExtractedLine {
	horizontal := a.Y == b.Y
	return graphicsstate.ExtractedLine{
		Start:        a,
		End:          b,
		IsHorizontal: horizontal,
		IsVertical:   !horizontal,
		BBox:         model.NewBBoxFromPoints(a, b),
	}
}

type lineCluster struct {
	hs, vs []graphicsstate.ExtractedLine
}

// clusterLines splits the rules into groups that touch. tables.GridDetector
// fits a single grid to all the lines it is given, so each table on a page
// has to be handed over on its own. A horizontal and a vertical rule touch
// when they cross within the intersection tolerance; two parallel rules
// touch when they are collinear within the snap tolerance and their ends are
// no further apart than the join tolerance.
func clusterLines(hs, vs []graphicsstate.ExtractedLine, opts Options) []lineCluster {
	parent := make([]int, len(hs)+len(vs))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		parent[find(a)] = find(b)
	}

	tol := opts.IntersectionTolerance
	for i, h := range hs {
		y := h.BBox.Y
		for j, v := range vs {
			x := v.BBox.X
			if x >= h.BBox.Left()-tol && x <= h.BBox.Right()+tol &&
				y >= v.BBox.Bottom()-tol && y <= v.BBox.Top()+tol {
				union(i, len(hs)+j)
			}
		}
	}

	joined := func(aPos, aLo, aHi, bPos, bLo, bHi float64) bool {
		return math.Abs(aPos-bPos) <= opts.SnapTolerance &&
			bLo <= aHi+opts.JoinTolerance && aLo <= bHi+opts.JoinTolerance
	}
	for i := range hs {
		for j := i + 1; j < len(hs); j++ {
			a, b := hs[i].BBox, hs[j].BBox
			if joined(a.Y, a.Left(), a.Right(), b.Y, b.Left(), b.Right()) {
				union(i, j)
			}
		}
	}
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			a, b := vs[i].BBox, vs[j].BBox
			if joined(a.X, a.Bottom(), a.Top(), b.X, b.Bottom(), b.Top()) {
				union(len(hs)+i, len(hs)+j)
			}
		}
	}

	byRoot := make(map[int]*lineCluster)
	var roots []int
	cluster := func(i int) *lineCluster {
		root := find(i)
		c, ok := byRoot[root]
		if !ok {
			c = &lineCluster{}
			byRoot[root] = c
			roots = append(roots, root)
		}
		return c
	}
	for i, h := range hs {
		c := cluster(i)
		c.hs = append(c.hs, h)
	}
	for j, v := range vs {
		c := cluster(len(hs) + j)
		c.vs = append(c.vs, v)
	}

	out := make([]lineCluster, 0, len(roots))
	for _, root := range roots {
		out = append(out, *byRoot[root])
	}
	return out
}
