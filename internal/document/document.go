package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedFormat is returned for files that are neither PDFs nor images.
var ErrUnsupportedFormat = errors.New("unsupported document format")

const (
	shipToLabel = "Ship To"
	attnLabel   = "ATTN:"
)

// Table is a grid of cell texts in row-major order. Row 0 is the header.
// Missing cells are empty strings.
type Table [][]string

// Box is a rectangle in page space, measured in points from the top-left
// corner of the page.
type Box struct {
	X0     float64
	Top    float64
	X1     float64
	Bottom float64
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.X1 <= b.X0 || b.Bottom <= b.Top
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Top && y <= b.Bottom
}

// Intersect clips b to other.
func (b Box) Intersect(other Box) Box {
	return Box{
		X0:     max(b.X0, other.X0),
		Top:    max(b.Top, other.Top),
		X1:     min(b.X1, other.X1),
		Bottom: min(b.Bottom, other.Bottom),
	}
}

// Document is everything acquired from one input file. Text lines are joined
// with "\n". ShipTo and Attn are empty when no region was found.
type Document struct {
	Path   string
	Text   string
	Tables []Table
	ShipTo string
	Attn   string
}

// Lines splits the document text into lines.
func (d *Document) Lines() []string {
	return strings.Split(d.Text, "\n")
}

// Page is the geometry capability a PDF backend provides for one page.
type Page interface {
	// Bounds returns the page (or crop) rectangle.
	Bounds() Box

	// Text returns the page text, one visual line per line.
	Text() (string, error)

	// Tables returns the ruled tables found on the page.
	Tables() ([]Table, error)

	// Search returns the boxes of every case-insensitive occurrence of literal.
	Search(literal string) []Box

	// Crop returns the part of the page inside box.
	Crop(box Box) (Page, error)
}

// regionBox computes the crop rectangle for a label match.
type regionBox func(match Box, page Box) Box

// shipToRegion spans from just left of the label to the page edge, 200pt down.
func shipToRegion(match Box, page Box) Box {
	return Box{
		X0:     match.X0 - 10,
		Top:    match.Bottom,
		X1:     page.X1,
		Bottom: match.Bottom + 200,
	}
}

// attnRegion keeps the label line and stays narrow enough to miss the
// right-hand date/PO column.
func attnRegion(match Box, _ Box) Box {
	top := match.Top - 2
	return Box{
		X0:     match.X0,
		Top:    top,
		X1:     match.X0 + 300,
		Bottom: top + 150,
	}
}

// FromPages builds a Document out of already-opened pages. Failures on a
// single page or crop are logged and leave that part of the document empty.
func FromPages(ctx context.Context, path string, pages []Page, log *slog.Logger) (*Document, error) {
	if log == nil {
		log = slog.Default()
	}

	doc := &Document{Path: path}
	var text strings.Builder

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i+1, err)
		}

		pageText, err := page.Text()
		if err != nil {
			log.Warn("Failed to extract page text", "path", path, "page", i+1, "error", err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")

		tables, err := page.Tables()
		if err != nil {
			log.Warn("Failed to extract page tables", "path", path, "page", i+1, "error", err)
		}
		for _, t := range tables {
			doc.Tables = append(doc.Tables, normalizeTable(t))
		}

		if doc.ShipTo == "" {
			doc.ShipTo = regionText(page, shipToLabel, shipToRegion, log.With("path", path, "page", i+1))
		}
		if doc.Attn == "" {
			doc.Attn = regionText(page, attnLabel, attnRegion, log.With("path", path, "page", i+1))
		}
	}

	doc.Text = normalizeText(text.String())
	doc.ShipTo = normalizeText(doc.ShipTo)
	doc.Attn = normalizeText(doc.Attn)
	return doc, nil
}

// regionText crops below the first occurrence of label and returns the text.
func regionText(page Page, label string, region regionBox, log *slog.Logger) string {
	matches := page.Search(label)
	if len(matches) == 0 {
		return ""
	}

	crop, err := page.Crop(region(matches[0], page.Bounds()))
	if err != nil {
		log.Warn("Failed to crop region", "label", label, "error", err)
		return ""
	}

	text, err := crop.Text()
	if err != nil {
		log.Warn("Failed to extract region text", "label", label, "error", err)
		return ""
	}
	return text
}

// normalizeText folds compatibility characters such as ligatures and
// full-width digits into their plain forms.
func normalizeText(s string) string {
	return norm.NFKC.String(s)
}

func normalizeTable(t Table) Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = normalizeText(cell)
		}
	}
	return out
}

// IsSupported reports whether path has an extension the Reader understands.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || isImageExt(ext)
}

func isImageExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".heic", ".heif":
		return true
	}
	return false
}
