package document

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	// lineTolerance is how far apart two glyph baselines may be and still
	// share a text line.
	lineTolerance = 3.0

	// wordGapRatio is the horizontal gap, relative to font size, above which
	// two glyphs are treated as separate words. PDF content streams usually
	// position words instead of emitting space glyphs.
	wordGapRatio = 0.2
	minWordGap   = 1.0
)

// Glyph is one positioned piece of text, usually a single character.
type Glyph struct {
	Text string
	Box
	Size float64
}

func (g Glyph) centre() (float64, float64) {
	return (g.X0 + g.X1) / 2, (g.Top + g.Bottom) / 2
}

// Layout is a Page built from positioned glyphs and drawn rectangles.
type Layout struct {
	bounds Box
	glyphs []Glyph
	rects  []Box
}

// NewLayout creates a page of the given size.
func NewLayout(width, height float64, glyphs []Glyph, rects []Box) *Layout {
	return &Layout{
		bounds: Box{X1: width, Bottom: height},
		glyphs: glyphs,
		rects:  rects,
	}
}

// Bounds returns the rectangle covered by the layout.
func (l *Layout) Bounds() Box {
	return l.bounds
}

// Text returns the layout text with one visual line per line.
func (l *Layout) Text() (string, error) {
	return joinLines(buildLines(l.glyphs)), nil
}

// Tables returns the tables drawn with ruling lines on the page.
func (l *Layout) Tables() ([]Table, error) {
	return findTables(l.rects, l.glyphs), nil
}

// Search finds every case-insensitive occurrence of literal. Whitespace in
// literal matches a word gap.
func (l *Layout) Search(literal string) []Box {
	needle := []rune(strings.ToLower(literal))
	if len(needle) == 0 {
		return nil
	}

	var boxes []Box
	for _, ln := range buildLines(l.glyphs) {
		for start := 0; start+len(needle) <= len(ln.runes); start++ {
			if !runesEqualFold(ln.runes[start:start+len(needle)], needle) {
				continue
			}
			if box, ok := ln.span(start, start+len(needle)); ok {
				boxes = append(boxes, box)
			}
		}
	}
	return boxes
}

// Crop keeps the glyphs whose centre lies inside box. The box is clipped to
// the page first; a box with no area left is an error.
func (l *Layout) Crop(box Box) (Page, error) {
	clipped := box.Intersect(l.bounds)
	if clipped.Empty() {
		return nil, fmt.Errorf("crop box %v is outside page %v", box, l.bounds)
	}

	var glyphs []Glyph
	for _, g := range l.glyphs {
		if clipped.Contains(g.centre()) {
			glyphs = append(glyphs, g)
		}
	}

	var rects []Box
	for _, r := range l.rects {
		if c := r.Intersect(clipped); c.X1 >= c.X0 && c.Bottom >= c.Top {
			rects = append(rects, c)
		}
	}

	return &Layout{bounds: clipped, glyphs: glyphs, rects: rects}, nil
}

// textLine is one visual line. runes and owners run in parallel; an owner of
// -1 marks a space inserted for a word gap.
type textLine struct {
	glyphs []Glyph
	runes  []rune
	owners []int
	bottom float64
}

func (ln *textLine) span(from, to int) (Box, bool) {
	var box Box
	found := false
	for _, owner := range ln.owners[from:to] {
		if owner < 0 {
			continue
		}
		g := ln.glyphs[owner].Box
		if !found {
			box = g
			found = true
			continue
		}
		box = Box{
			X0:     min(box.X0, g.X0),
			Top:    min(box.Top, g.Top),
			X1:     max(box.X1, g.X1),
			Bottom: max(box.Bottom, g.Bottom),
		}
	}
	return box, found
}

func (ln *textLine) String() string {
	return string(ln.runes)
}

// buildLines groups glyphs into lines from top to bottom and orders each
// line left to right.
func buildLines(glyphs []Glyph) []*textLine {
	sorted := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if strings.TrimSpace(g.Text) == "" {
			continue
		}
		sorted = append(sorted, g)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Bottom != sorted[j].Bottom {
			return sorted[i].Bottom < sorted[j].Bottom
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var lines []*textLine
	var current *textLine
	for _, g := range sorted {
		if current == nil || g.Bottom-current.bottom > lineTolerance {
			current = &textLine{bottom: g.Bottom}
			lines = append(lines, current)
		}
		current.glyphs = append(current.glyphs, g)
	}

	for _, ln := range lines {
		sort.SliceStable(ln.glyphs, func(i, j int) bool {
			return ln.glyphs[i].X0 < ln.glyphs[j].X0
		})
		for i, g := range ln.glyphs {
			if i > 0 && isWordGap(ln.glyphs[i-1], g) {
				ln.runes = append(ln.runes, ' ')
				ln.owners = append(ln.owners, -1)
			}
			for _, r := range g.Text {
				ln.runes = append(ln.runes, r)
				ln.owners = append(ln.owners, i)
			}
		}
	}
	return lines
}

func isWordGap(prev, next Glyph) bool {
	size := max(prev.Size, next.Size)
	return next.X0-prev.X1 > max(minWordGap, size*wordGapRatio)
}

func joinLines(lines []*textLine) string {
	parts := make([]string, len(lines))
	for i, ln := range lines {
		parts[i] = ln.String()
	}
	return strings.Join(parts, "\n")
}

func runesEqualFold(a, b []rune) bool {
	for i := range a {
		ra, rb := unicode.ToLower(a[i]), b[i]
		if unicode.IsSpace(rb) {
			if !unicode.IsSpace(ra) {
				return false
			}
			continue
		}
		if ra != rb {
			return false
		}
	}
	return true
}
