package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
)

// FileStore keeps the known-ID set in a JSON file.
type FileStore struct {
	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// NewFileStore creates a FileStore writing to filePath
func NewFileStore(filePath string) *FileStore {
	return &FileStore{
		filePath:        filePath,
		filePermissions: 0o644,
		dirPermissions:  0o755,
	}
}

// Load reads the known-ID set. A missing file is an empty set; anything other
// than a JSON array is reported as a CorruptStateError. Non-string elements
// are ignored.
func (s *FileStore) Load(_ context.Context) (mapset.Set[string], error) {
	known := NewSet()

	// Clean up any stale temp files from previous crashes
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return known, nil
	}
	if err != nil {
		return known, &CorruptStateError{Location: s.filePath, Err: err}
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return known, &CorruptStateError{Location: s.filePath, Err: err}
	}
	items, ok := decoded.([]any)
	if !ok {
		return known, &CorruptStateError{Location: s.filePath, Err: fmt.Errorf("expected JSON array, got %T", decoded)}
	}

	for _, item := range items {
		if id, ok := item.(string); ok {
			known.Add(id)
		}
	}
	return known, nil
}

// Save overwrites the file with the sorted set, two-space indented, without
// escaping non-ASCII or HTML characters.
func (s *FileStore) Save(_ context.Context, known mapset.Set[string]) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	jsonData, err := encodeIDs(Sorted(known))
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write to temporary file first (atomic write)
	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Close is a no-op for file storage
func (s *FileStore) Close() error {
	return nil
}

func encodeIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ids); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
