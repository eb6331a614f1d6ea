// Package store persists scraped records. Every backend merges a new batch
// into what is already stored, keyed by record ID, with the newer record
// winning.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// RecordStore is a keyed record collection.
type RecordStore interface {
	// MergeAndSave merges records into the stored collection and persists
	// the result, returning the collection size after the merge.
	MergeAndSave(ctx context.Context, records []model.Record) (int, error)

	// Load returns the stored collection ordered by ID. A destination that
	// does not exist yet is an empty collection.
	Load(ctx context.Context) ([]model.Record, error)

	Close() error
}

// StorageFailure reports that a destination could not be read or written.
type StorageFailure struct {
	Destination string
	Op          string
	Err         error
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Destination, e.Err)
}

func (e *StorageFailure) Unwrap() error {
	return e.Err
}

func failure(dest, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageFailure{Destination: dest, Op: op, Err: err}
}

// Backend names the storage format chosen for a destination.
type Backend string

const (
	BackendCSV      Backend = "csv"
	BackendJSON     Backend = "json"
	BackendXLSX     Backend = "xlsx"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// BackendFor picks a backend from a destination: Postgres URLs, then by
// file extension, defaulting to CSV.
func BackendFor(destination string) Backend {
	lower := strings.ToLower(destination)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return BackendPostgres
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return BackendSQLite
	case ".xlsx":
		return BackendXLSX
	case ".json":
		return BackendJSON
	default:
		return BackendCSV
	}
}

// Open returns the RecordStore for destination. SQL backends are migrated
// before they are returned.
func Open(ctx context.Context, destination string) (RecordStore, error) {
	switch BackendFor(destination) {
	case BackendPostgres:
		s, err := NewPostgres(ctx, destination)
		if err != nil {
			return nil, failure(redact(destination), "open", err)
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, failure(redact(destination), "migrate", err)
		}
		return s, nil
	case BackendSQLite:
		s, err := NewSQLite(destination)
		if err != nil {
			return nil, failure(destination, "open", err)
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, failure(destination, "migrate", err)
		}
		return s, nil
	case BackendXLSX:
		return NewFileStore(destination, xlsxCodec{}), nil
	case BackendJSON:
		return NewFileStore(destination, jsonCodec{}), nil
	default:
		return NewFileStore(destination, csvCodec{}), nil
	}
}

// DisplayName returns destination in a form safe to print or log.
func DisplayName(destination string) string {
	if BackendFor(destination) == BackendPostgres {
		return redact(destination)
	}
	return destination
}
