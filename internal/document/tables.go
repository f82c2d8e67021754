package document

import (
	"math"
	"sort"
	"strings"
)

const (
	// ruleThickness is the largest extent a rectangle can have in one
	// direction and still be read as a single ruling line.
	ruleThickness = 3.0
	snapTolerance = 3.0
	joinTolerance = 3.0
	edgeTolerance = 1.0
)

type orientation int

const (
	horizontal orientation = iota
	vertical
)

// edge is a ruling line. For horizontal edges pos is y and from/to run along
// x; for vertical edges pos is x and from/to run along y.
type edge struct {
	orient orientation
	pos    float64
	from   float64
	to     float64
}

type point struct {
	x, y float64
}

type cell struct {
	Box
}

// findTables reconstructs ruled tables: rectangles become edges, edges meet
// at intersections, intersections bound cells, and cells that share a
// corner form one table.
func findTables(rects []Box, glyphs []Glyph) []Table {
	edges := rectsToEdges(rects)
	edges = joinEdges(snapEdges(edges))

	points := intersections(edges)
	cells := cellsFromPoints(points, edges)

	var tables []Table
	for _, group := range groupCells(cells) {
		if len(group) < 2 {
			continue
		}
		tables = append(tables, tableFromCells(group, glyphs))
	}
	return tables
}

func rectsToEdges(rects []Box) []edge {
	var edges []edge
	for _, r := range rects {
		w, h := r.X1-r.X0, r.Bottom-r.Top
		switch {
		case w <= 0 && h <= 0:
			continue
		case h <= ruleThickness && w > h:
			edges = append(edges, edge{horizontal, (r.Top + r.Bottom) / 2, r.X0, r.X1})
		case w <= ruleThickness && h > w:
			edges = append(edges, edge{vertical, (r.X0 + r.X1) / 2, r.Top, r.Bottom})
		default:
			edges = append(edges,
				edge{horizontal, r.Top, r.X0, r.X1},
				edge{horizontal, r.Bottom, r.X0, r.X1},
				edge{vertical, r.X0, r.Top, r.Bottom},
				edge{vertical, r.X1, r.Top, r.Bottom},
			)
		}
	}
	return edges
}

// snapEdges moves parallel edges whose positions are within snapTolerance
// onto their mean position.
func snapEdges(edges []edge) []edge {
	out := make([]edge, 0, len(edges))
	for _, o := range []orientation{horizontal, vertical} {
		var group []edge
		for _, e := range edges {
			if e.orient == o {
				group = append(group, e)
			}
		}
		sort.Slice(group, func(i, j int) bool { return group[i].pos < group[j].pos })

		for start := 0; start < len(group); {
			end := start + 1
			for end < len(group) && group[end].pos-group[end-1].pos <= snapTolerance {
				end++
			}
			var sum float64
			for _, e := range group[start:end] {
				sum += e.pos
			}
			mean := sum / float64(end-start)
			for _, e := range group[start:end] {
				e.pos = mean
				out = append(out, e)
			}
			start = end
		}
	}
	return out
}

// joinEdges merges collinear edges that overlap or nearly touch.
func joinEdges(edges []edge) []edge {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.orient != b.orient {
			return a.orient < b.orient
		}
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		return a.from < b.from
	})

	var out []edge
	for _, e := range edges {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.orient == e.orient && last.pos == e.pos && e.from <= last.to+joinTolerance {
				last.to = math.Max(last.to, e.to)
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func intersections(edges []edge) map[point]bool {
	points := make(map[point]bool)
	for _, v := range edges {
		if v.orient != vertical {
			continue
		}
		for _, h := range edges {
			if h.orient != horizontal {
				continue
			}
			if v.pos >= h.from-edgeTolerance && v.pos <= h.to+edgeTolerance &&
				h.pos >= v.from-edgeTolerance && h.pos <= v.to+edgeTolerance {
				points[point{v.pos, h.pos}] = true
			}
		}
	}
	return points
}

// connected reports whether a single edge runs between a and b.
func connected(a, b point, edges []edge) bool {
	for _, e := range edges {
		switch {
		case a.y == b.y && e.orient == horizontal && e.pos == a.y:
			if e.from-edgeTolerance <= math.Min(a.x, b.x) && e.to+edgeTolerance >= math.Max(a.x, b.x) {
				return true
			}
		case a.x == b.x && e.orient == vertical && e.pos == a.x:
			if e.from-edgeTolerance <= math.Min(a.y, b.y) && e.to+edgeTolerance >= math.Max(a.y, b.y) {
				return true
			}
		}
	}
	return false
}

// cellsFromPoints finds, for every intersection, the smallest rectangle that
// has it as the top-left corner and is closed by edges on all four sides.
func cellsFromPoints(points map[point]bool, edges []edge) []cell {
	sorted := make([]point, 0, len(points))
	for p := range points {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y < sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var cells []cell
	for i, p := range sorted {
		var below, right []point
		for _, q := range sorted[i+1:] {
			if q.x == p.x {
				below = append(below, q)
			}
			if q.y == p.y {
				right = append(right, q)
			}
		}
		sort.Slice(below, func(a, b int) bool { return below[a].y < below[b].y })
		sort.Slice(right, func(a, b int) bool { return right[a].x < right[b].x })

	search:
		for _, b := range below {
			if !connected(p, b, edges) {
				continue
			}
			for _, r := range right {
				if !connected(p, r, edges) {
					continue
				}
				corner := point{r.x, b.y}
				if points[corner] && connected(r, corner, edges) && connected(b, corner, edges) {
					cells = append(cells, cell{Box{X0: p.x, Top: p.y, X1: r.x, Bottom: b.y}})
					break search
				}
			}
		}
	}
	return cells
}

// groupCells partitions cells into tables; cells sharing a corner belong to
// the same table.
func groupCells(cells []cell) [][]cell {
	parent := make([]int, len(cells))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	owner := make(map[point]int)
	for i, c := range cells {
		for _, corner := range []point{{c.X0, c.Top}, {c.X1, c.Top}, {c.X0, c.Bottom}, {c.X1, c.Bottom}} {
			if j, ok := owner[corner]; ok {
				parent[find(i)] = find(j)
				continue
			}
			owner[corner] = i
		}
	}

	byRoot := make(map[int][]cell)
	var roots []int
	for i, c := range cells {
		root := find(i)
		if _, ok := byRoot[root]; !ok {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], c)
	}

	groups := make([][]cell, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, byRoot[root])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i][0], groups[j][0]
		if a.Top != b.Top {
			return a.Top < b.Top
		}
		return a.X0 < b.X0
	})
	return groups
}

func tableFromCells(cells []cell, glyphs []Glyph) Table {
	rowIndex := uniqueSorted(cells, func(c cell) float64 { return c.Top })
	colIndex := uniqueSorted(cells, func(c cell) float64 { return c.X0 })

	table := make(Table, len(rowIndex))
	for i := range table {
		table[i] = make([]string, len(colIndex))
	}
	for _, c := range cells {
		table[rowIndex[c.Top]][colIndex[c.X0]] = cellText(c.Box, glyphs)
	}
	return table
}

func uniqueSorted(cells []cell, key func(cell) float64) map[float64]int {
	seen := make(map[float64]bool)
	var values []float64
	for _, c := range cells {
		if v := key(c); !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Float64s(values)

	index := make(map[float64]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	return index
}

func cellText(box Box, glyphs []Glyph) string {
	var inside []Glyph
	for _, g := range glyphs {
		if box.Contains(g.centre()) {
			inside = append(inside, g)
		}
	}
	return strings.TrimSpace(joinLines(buildLines(inside)))
}
