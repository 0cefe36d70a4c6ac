package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store defines persistence operations for the plugin package record.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

// FileStore persists the package record to a JSON file on disk, written with
// 4-space indentation and a trailing newline to match the packaging pipeline.
type FileStore struct {
	// path is the filesystem location of the JSON record.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

const (
	// recordIndent is the indentation unit used when serializing the record.
	recordIndent = "    "

	// recordFilePermissions keeps the record world-readable for the packaging tooling.
	recordFilePermissions = 0o644
)

// ErrNotFound is returned when the record file does not exist.
var ErrNotFound = errors.New("plugin record not found")

// NewFileStore creates a store that reads/writes the record at the provided path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: filepath.Clean(path),
	}
}

// Load reads the record from disk.
func (s *FileStore) Load(_ context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read plugin record: %w", err)
	}

	var record Record
	if err = json.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("decode plugin record: %w", err)
	}

	return &record, nil
}

// Save replaces the record file with the serialized record. The new contents
// land in a temporary file first and are renamed over the original, so the
// version and checksum fields can never be observed half-updated.
func (s *FileStore) Save(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", recordIndent)
	if err != nil {
		return fmt.Errorf("encode plugin record: %w", err)
	}

	data = append(data, '\n')

	temporary, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary record: %w", err)
	}

	temporaryName := temporary.Name()

	if _, err = temporary.Write(data); err != nil {
		_ = temporary.Close()
		_ = os.Remove(temporaryName)

		return fmt.Errorf("write temporary record: %w", err)
	}

	if err = temporary.Close(); err != nil {
		_ = os.Remove(temporaryName)

		return fmt.Errorf("close temporary record: %w", err)
	}

	if err = os.Chmod(temporaryName, recordFilePermissions); err != nil {
		_ = os.Remove(temporaryName)

		return fmt.Errorf("chmod temporary record: %w", err)
	}

	if err = os.Rename(temporaryName, s.path); err != nil {
		_ = os.Remove(temporaryName)

		return fmt.Errorf("replace plugin record: %w", err)
	}

	return nil
}
