package document

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

const defaultDPI = 300

// Rasterizer renders the pages of a PDF to images.
type Rasterizer interface {
	Rasterize(data []byte) ([]image.Image, error)
}

// FitzRasterizer renders with MuPDF.
type FitzRasterizer struct {
	DPI float64
}

// Rasterize renders every page of the PDF at the configured DPI.
func (f *FitzRasterizer) Rasterize(data []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	dpi := f.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}

	images := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", n+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}
