package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/zombor/po-reader/internal/document"
)

// Source acquires a document from a file.
type Source interface {
	Read(ctx context.Context, path string) (*document.Document, error)
}

// Failure reports a document that could not be read at all. Unknown fields
// in a record that was produced are never a Failure.
type Failure struct {
	Filename string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("reading %s: %v", f.Filename, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Extractor turns purchase order files into records.
type Extractor struct {
	source Source
	log    *slog.Logger
}

// NewExtractor creates an Extractor that reads documents from source.
func NewExtractor(source Source) *Extractor {
	return NewExtractorWithLogger(source, slog.Default())
}

// NewExtractorWithLogger creates an Extractor with a custom logger.
func NewExtractorWithLogger(source Source, log *slog.Logger) *Extractor {
	return &Extractor{source: source, log: log}
}

// Extract reads the file at path and extracts a record from it. A file that
// cannot be opened yields a *Failure. Cancellation of ctx is returned as is.
func (e *Extractor) Extract(ctx context.Context, path string) (*Record, error) {
	name := filepath.Base(path)
	start := time.Now()

	doc, err := e.source.Read(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("extracting %s: %w", name, err)
		}
		e.log.Error("Failed to read document", "filename", name, "error", err)
		return nil, &Failure{Filename: name, Err: err}
	}

	rec, strategy := parse(doc)
	e.log.Info("Extracted document",
		"filename", name,
		"po_number", rec.PONumber,
		"items", len(rec.Items),
		"strategy", strategy,
		"tables", len(doc.Tables),
		"duration", time.Since(start),
	)
	return rec, nil
}
