package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

// codec reads and writes a whole collection in one file format.
type codec interface {
	read(path string) ([]model.Record, error)
	write(path string, records []model.Record) error
}

// FileStore keeps the collection in a single file. Saves replace the file
// atomically: the merged collection is written to a temp file in the same
// directory and renamed over the destination.
type FileStore struct {
	path  string
	codec codec
}

// NewFileStore creates a FileStore for path using the given format.
func NewFileStore(path string, c codec) *FileStore {
	return &FileStore{path: path, codec: c}
}

// Load reads the stored collection. A missing file is an empty collection.
func (s *FileStore) Load(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return []model.Record{}, nil
	}
	records, err := s.codec.read(s.path)
	if err != nil {
		return nil, failure(s.path, "read", err)
	}
	return Merge(nil, records), nil
}

// MergeAndSave merges records into the file and returns the new size.
func (s *FileStore) MergeAndSave(ctx context.Context, records []model.Record) (int, error) {
	existing, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	merged := Merge(existing, records)

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.writeAtomic(merged); err != nil {
		return 0, failure(s.path, "write", err)
	}

	zap.L().Info("store: saved records",
		zap.String("path", s.path),
		zap.Int("incoming", len(records)),
		zap.Int("total", len(merged)),
	)
	return len(merged), nil
}

const filePerm = 0o644

func (s *FileStore) writeAtomic(records []model.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := s.codec.write(tmpPath, records); err != nil {
		return err
	}
	// CreateTemp makes the file 0600; destinations are shared data files.
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return eris.Wrap(err, "set file mode")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return eris.Wrap(err, "replace destination")
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *FileStore) Close() error {
	return nil
}
