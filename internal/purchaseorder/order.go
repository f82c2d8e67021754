package purchaseorder

import (
	"errors"
	"time"

	"github.com/zombor/po-reader/internal/extract"
)

var (
	// ErrNotFound is returned when a file or cached record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFilename is returned for names that would escape the
	// purchase order directory.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrExists is returned when saving under a name that is already taken.
	ErrExists = errors.New("already exists")
)

// File is a purchase order document in the directory
type File struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Date     time.Time `json:"date"` // Modification time of the file
}

// StoredRecord is an extraction result cached for a file
type StoredRecord struct {
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"` // SHA-256 of the file the record was extracted from
	ParsedAt    time.Time       `json:"parsed_at"`
	Record      *extract.Record `json:"record"`
}
