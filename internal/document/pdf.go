package document

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Letter size, used when a page has no readable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0

	// maxParentDepth bounds the walk up the page tree for inherited keys.
	maxParentDepth = 32
)

// parsePDF reads every page of an in-memory PDF into a Layout. Pages that
// fail to parse are logged and skipped. Only a file that cannot be opened at
// all is an error.
func parsePDF(data []byte, path string, log *slog.Logger) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		layout, err := pageLayout(page)
		if err != nil {
			log.Warn("Skipping unreadable page", "path", path, "page", i, "error", err)
			continue
		}
		pages = append(pages, layout)
	}
	return pages, nil
}

// pageLayout converts a page's glyphs and rectangles into top-left page
// space. The content stream parser panics on malformed operators.
func pageLayout(page pdf.Page) (layout *Layout, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading page content: %v", r)
		}
	}()

	box := mediaBox(page.V)
	content := page.Content()

	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 1
		}
		width := t.W
		if width <= 0 {
			width = size / 2
		}
		bottom := box.Bottom - t.Y
		x0 := t.X - box.X0
		glyphs = append(glyphs, Glyph{
			Text: t.S,
			Box:  Box{X0: x0, Top: bottom - size, X1: x0 + width, Bottom: bottom},
			Size: size,
		})
	}

	rects := make([]Box, 0, len(content.Rect))
	for _, r := range content.Rect {
		rects = append(rects, Box{
			X0:     math.Min(r.Min.X, r.Max.X) - box.X0,
			Top:    box.Bottom - math.Max(r.Min.Y, r.Max.Y),
			X1:     math.Max(r.Min.X, r.Max.X) - box.X0,
			Bottom: box.Bottom - math.Min(r.Min.Y, r.Max.Y),
		})
	}

	return NewLayout(box.X1-box.X0, box.Bottom-box.Top, glyphs, rects), nil
}

// mediaBox returns the page rectangle in PDF user space: X0/X1 are the left
// and right edges, Top/Bottom hold the lower and upper y. MediaBox may be
// inherited from any ancestor in the page tree.
func mediaBox(v pdf.Value) Box {
	node := v
	for depth := 0; depth < maxParentDepth && !node.IsNull(); depth++ {
		mb := node.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() == 4 {
			llx, lly := mb.Index(0).Float64(), mb.Index(1).Float64()
			urx, ury := mb.Index(2).Float64(), mb.Index(3).Float64()
			if urx > llx && ury > lly {
				return Box{X0: llx, Top: lly, X1: urx, Bottom: ury}
			}
		}
		node = node.Key("Parent")
	}
	return Box{X1: defaultPageWidth, Bottom: defaultPageHeight}
}
