package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/zombor/po-reader/internal/extract"
	"github.com/zombor/po-reader/internal/purchaseorder"
)

type batchOptions struct {
	workers  int
	csvPath  string
	xlsxPath string
	asJSON   bool
}

// collectPaths expands directory arguments into the documents they hold
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := extract.ScanDirectory(arg)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
		if len(found) == 0 {
			slog.Warn("No documents found", "dir", arg)
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

// runBatch extracts the given files and directories and prints or writes
// the records. Files that cannot be read are reported and skipped.
func runBatch(ctx context.Context, extractor *extract.Extractor, args []string, opts batchOptions) error {
	paths, err := collectPaths(args)
	if err != nil {
		return err
	}

	results, err := extractor.ExtractAll(ctx, paths, opts.workers)
	if err != nil {
		return err
	}

	var recs []*extract.Record
	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "Failed to process %s: %v\n", result.Path, result.Err)
			continue
		}
		recs = append(recs, result.Record)
	}

	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(recs); err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
	} else {
		for _, rec := range recs {
			printRecord(os.Stdout, rec)
		}
	}

	if opts.csvPath != "" {
		if err := writeFile(opts.csvPath, purchaseorder.WriteCSV, recs); err != nil {
			return err
		}
		slog.Info("Wrote CSV", "path", opts.csvPath, "records", len(recs))
	}
	if opts.xlsxPath != "" {
		if err := writeFile(opts.xlsxPath, purchaseorder.WriteXLSX, recs); err != nil {
			return err
		}
		slog.Info("Wrote XLSX", "path", opts.xlsxPath, "records", len(recs))
	}
	return nil
}

func writeFile(path string, write func(io.Writer, ...*extract.Record) error, recs []*extract.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f, recs...); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// printRecord prints the header fields of a record followed by its items
func printRecord(w io.Writer, rec *extract.Record) {
	fmt.Fprintf(w, "\n--- Extracted Data for %s ---\n", rec.SourceFile)
	fmt.Fprintf(w, "Customer: %s\n", rec.Customer)
	fmt.Fprintf(w, "Customer Address: %s\n", rec.CustomerAddress)
	fmt.Fprintf(w, "PO Number: %s\n", rec.PONumber)
	fmt.Fprintf(w, "Order Date: %s\n", rec.OrderDate)
	fmt.Fprintf(w, "Delivery Date: %s\n", rec.DeliveryDate)
	fmt.Fprintf(w, "Delivery Address: %s\n", rec.DeliveryAddress)
	fmt.Fprintf(w, "Ordered By: %s\n", rec.OrderedBy)

	if len(rec.Items) == 0 {
		fmt.Fprintln(w, "No line items found.")
	} else {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Product", "Qty", "Rate", "Price"})
		table.SetAutoWrapText(false)
		for _, item := range rec.Items {
			table.Append([]string{
				item.Description,
				strconv.FormatFloat(item.Quantity, 'f', -1, 64),
				fmt.Sprintf("%.2f", item.Rate),
				fmt.Sprintf("%.2f", item.Price),
			})
		}
		table.Render()
	}

	fmt.Fprintf(w, "Total Amount: $%.2f\n", rec.InvoiceAmount)
}
