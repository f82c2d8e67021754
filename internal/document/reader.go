package document

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls OCR for images and scanned PDFs.
type Config struct {
	// Language is the Tesseract language, "eng" when empty.
	Language string
	// DPI is the resolution scanned PDF pages are rendered at.
	DPI float64
	// Enhance preprocesses images before OCR.
	Enhance bool
}

// Reader opens PDFs and images and acquires their text, tables and labelled
// regions.
type Reader struct {
	recognizer Recognizer
	rasterizer Rasterizer
	enhance    bool
	log        *slog.Logger
}

// NewReader creates a Reader backed by Tesseract and MuPDF.
func NewReader(cfg Config) *Reader {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	return NewReaderWithDeps(&Tesseract{Language: lang}, &FitzRasterizer{DPI: cfg.DPI}, cfg.Enhance, slog.Default())
}

// NewReaderWithDeps creates a Reader with custom dependencies for testing.
// A nil rasterizer disables OCR of scanned PDFs.
func NewReaderWithDeps(recognizer Recognizer, rasterizer Rasterizer, enhance bool, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{
		recognizer: recognizer,
		rasterizer: rasterizer,
		enhance:    enhance,
		log:        log,
	}
}

// Read acquires a Document from the file at path. An error means the file as
// a whole could not be read.
func (r *Reader) Read(ctx context.Context, path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" && !isImageExt(ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	if ext == ".pdf" {
		return r.readPDF(ctx, path, data)
	}
	return r.readImage(ctx, path, data, ext)
}

func (r *Reader) readPDF(ctx context.Context, path string, data []byte) (*Document, error) {
	pages, err := parsePDF(data, path, r.log)
	if err != nil {
		return nil, err
	}

	doc, err := FromPages(ctx, path, pages, r.log)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Text) != "" || r.rasterizer == nil {
		return doc, nil
	}

	// No text layer: treat it as a scanned document.
	r.log.Info("PDF has no text layer, running OCR", "path", path, "pages", len(pages))
	images, err := r.rasterizer.Rasterize(data)
	if err != nil {
		r.log.Warn("Failed to render scanned PDF", "path", path, "error", err)
		return doc, nil
	}

	text, err := r.recognizeAll(ctx, path, images)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Text: text}, nil
}

func (r *Reader) readImage(ctx context.Context, path string, data []byte, ext string) (*Document, error) {
	img, err := decodeImage(data, ext)
	if err != nil {
		return nil, err
	}

	text, err := r.recognizeAll(ctx, path, []image.Image{img})
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Text: text}, nil
}

// recognizeAll OCRs each image and joins the page texts. Images only ever
// produce text: no tables and no regions.
func (r *Reader) recognizeAll(ctx context.Context, path string, images []image.Image) (string, error) {
	var text strings.Builder
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
		}

		if r.enhance {
			img = enhanceForOCR(img)
		}
		encoded, err := encodePNG(img)
		if err != nil {
			return "", err
		}

		pageText, err := r.recognizer.Recognize(ctx, encoded)
		if err != nil {
			return "", fmt.Errorf("running OCR on page %d: %w", i+1, err)
		}
		r.log.Debug("Recognized page", "path", path, "page", i+1, "chars", len(pageText))

		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return normalizeText(text.String()), nil
}
