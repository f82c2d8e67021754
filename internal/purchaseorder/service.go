package purchaseorder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/po-reader/internal/document"
	"github.com/zombor/po-reader/internal/extract"
)

// DefaultExtractTimeout bounds a single extraction; OCR of large scans is slow.
const DefaultExtractTimeout = 2 * time.Minute

// Extractor turns a stored file into a record
type Extractor interface {
	Extract(ctx context.Context, path string) (*extract.Record, error)
}

// IDGenerator generates unique IDs for uploaded files
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// fileID derives a stable ID from a filename so listings agree across calls
func fileID(filename string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(filename)).String()
}

// Service handles purchase order operations
type Service struct {
	db          DB
	extractor   Extractor
	storage     Storage
	opener      Opener
	idGenerator IDGenerator
	timeSource  TimeSource
	timeout     time.Duration
}

// NewService creates a new Service with default ID generator, time source
// and opener
func NewService(db DB, extractor Extractor, storage Storage, timeout time.Duration) *Service {
	s := NewServiceWithDeps(db, extractor, storage, SystemOpener{}, &defaultIDGenerator{}, &defaultTimeSource{})
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor Extractor, storage Storage, opener Opener, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		opener:      opener,
		idGenerator: idGen,
		timeSource:  timeSrc,
		timeout:     DefaultExtractTimeout,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	// Drop any directory part a browser may send
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))

	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "purchase-order"
	}

	return base + ext
}

// ListFiles returns the supported documents in the directory, by name
func (s *Service) ListFiles() ([]*File, error) {
	infos, err := s.storage.List()
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]*File, 0, len(infos))
	for _, info := range infos {
		if !document.IsSupported(info.Name) {
			continue
		}
		files = append(files, &File{
			ID:       fileID(info.Name),
			Filename: info.Name,
			Date:     info.ModTime,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

// Upload stores a new document and extracts it. A document that cannot be
// read is removed again.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*File, *extract.Record, error) {
	clean := sanitizeFilename(filename)
	if !document.IsSupported(clean) {
		return nil, nil, fmt.Errorf("%s: %w", filename, document.ErrUnsupportedFormat)
	}
	saved, err := s.storage.Save(clean, data)
	if errors.Is(err, ErrExists) {
		saved, err = s.storage.Save(fmt.Sprintf("%s_%s", s.idGenerator.Generate(), clean), data)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("saving file: %w", err)
	}

	rec, err := s.Parse(ctx, saved)
	if err != nil {
		slog.Error("Failed to extract uploaded document",
			"filename", filename,
			"saved_as", saved,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since extraction failed
		if delErr := s.storage.Delete(saved); delErr != nil {
			slog.Warn("Failed to delete file", "filename", saved, "error", delErr)
		}
		return nil, nil, fmt.Errorf("extracting document: %w", err)
	}

	return &File{ID: fileID(saved), Filename: saved, Date: s.timeSource.Now()}, rec, nil
}

// Parse extracts a record from a stored document. A cached record is reused
// while the file content is unchanged.
func (s *Service) Parse(ctx context.Context, filename string) (*extract.Record, error) {
	path, err := s.storage.Path(filename)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.Get(filename)
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}
	hash := contentHash(data)

	cached, err := s.db.GetRecord(filename)
	if err == nil && cached.ContentHash == hash && cached.Record != nil {
		slog.Debug("Using cached record", "filename", filename)
		return cached.Record, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("Failed to read cached record", "filename", filename, "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	stored := &StoredRecord{
		Filename:    filename,
		ContentHash: hash,
		ParsedAt:    s.timeSource.Now(),
		Record:      rec,
	}
	if err := s.db.SaveRecord(stored); err != nil {
		// The record is still good; only the cache is stale
		slog.Warn("Failed to cache record", "filename", filename, "error", err)
	}
	return rec, nil
}

// GetRecord returns the cached record for a file
func (s *Service) GetRecord(filename string) (*StoredRecord, error) {
	if err := validName(filename); err != nil {
		return nil, err
	}
	record, err := s.db.GetRecord(filename)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return record, nil
}

// ListRecords returns every cached record
func (s *Service) ListRecords() ([]*StoredRecord, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// GetFile retrieves the file data and its content type
func (s *Service) GetFile(filename string) ([]byte, string, error) {
	data, err := s.storage.Get(filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting file: %w", err)
	}
	return data, contentType(filename), nil
}

// Delete removes a file and its cached record
func (s *Service) Delete(filename string) error {
	if err := s.storage.Delete(filename); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	if err := s.db.DeleteRecord(filename); err != nil {
		// Log error; the file itself is gone
		slog.Warn("Failed to delete cached record", "filename", filename, "error", err)
	}
	return nil
}

// OpenFolder opens the purchase order directory in the desktop file manager
func (s *Service) OpenFolder(ctx context.Context) error {
	dir, err := filepath.Abs(s.storage.Root())
	if err != nil {
		return fmt.Errorf("resolving folder: %w", err)
	}
	if err := s.opener.Open(ctx, dir); err != nil {
		return fmt.Errorf("opening folder: %w", err)
	}
	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
