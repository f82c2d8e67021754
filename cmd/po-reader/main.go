package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/po-reader/internal/document"
	"github.com/zombor/po-reader/internal/extract"
	"github.com/zombor/po-reader/internal/purchaseorder"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("po-reader")
	var (
		port        = fs.IntLong("port", 8000, "HTTP server port")
		poDir       = fs.StringLong("po-dir", "./pos", "Purchase order directory")
		dbPath      = fs.StringLong("db", "po-reader.db", "Record cache file path")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		ocrLang     = fs.StringLong("ocr-lang", "eng", "Tesseract language for images and scanned PDFs")
		ocrDPI      = fs.Float64Long("ocr-dpi", 300, "Resolution scanned PDF pages are rendered at")
		enhance     = fs.BoolLong("enhance-images", "Grayscale, contrast and sharpen images before OCR")
		timeout     = fs.DurationLong("extract-timeout", purchaseorder.DefaultExtractTimeout, "Maximum time for one extraction")
		workers     = fs.IntLong("workers", 4, "Files extracted concurrently in batch mode")
		csvPath     = fs.StringLong("csv", "", "Write extracted records to this CSV file (batch mode)")
		xlsxPath    = fs.StringLong("xlsx", "", "Write extracted records to this XLSX file (batch mode)")
		asJSON      = fs.BoolLong("json", "Print records as JSON instead of tables (batch mode)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PO_READER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := document.NewReader(document.Config{
		Language: *ocrLang,
		DPI:      *ocrDPI,
		Enhance:  *enhance,
	})
	extractor := extract.NewExtractor(reader)

	// Positional files or directories run a batch and exit
	if args := fs.GetArgs(); len(args) > 0 {
		err := runBatch(ctx, extractor, args, batchOptions{
			workers:  *workers,
			csvPath:  *csvPath,
			xlsxPath: *xlsxPath,
			asJSON:   *asJSON,
		})
		if err != nil {
			slog.Error("Batch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := purchaseorder.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "dir", *poDir)
	store, err := purchaseorder.NewLocalStorage(*poDir)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := purchaseorder.NewService(db, extractor, store, *timeout)

	basicAuth := purchaseorder.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := purchaseorder.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s/invoices/health", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}
