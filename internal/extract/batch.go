package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/po-reader/internal/document"
)

// Result is the outcome of extracting one file in a batch. Exactly one of
// Record and Err is set.
type Result struct {
	Path   string
	Record *Record
	Err    error
}

// ScanDirectory lists the supported documents directly inside dir, sorted by
// name.
func ScanDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !document.IsSupported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ExtractAll extracts every path with at most workers extractions running at
// once. Results are in the same order as paths. A file that fails to open is
// reported in its Result; only cancellation stops the batch.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			rec, err := e.Extract(gctx, path)
			results[i] = Result{Path: path, Record: rec, Err: err}

			var failure *Failure
			if err != nil && !errors.As(err, &failure) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("extracting batch: %w", err)
	}
	return results, nil
}
