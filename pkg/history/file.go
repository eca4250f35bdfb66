package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pkgz/lgr"
)

// FileStore persists the history record as a single JSON document.
// Save is atomic: the document is written to a temp file in the same
// directory and renamed over the old one, so a failed write never
// truncates or corrupts the previous state.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed history store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted record. A missing, unreadable or structurally
// invalid file yields an empty record, never an error: re-reporting on the
// next run is preferred over losing new-item detection entirely.
func (s *FileStore) Load() Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			lgr.Printf("[WARN] failed to read history %s, starting empty: %v", s.path, err)
		}
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		lgr.Printf("[WARN] corrupt history %s, starting empty: %v", s.path, err)
		return Record{}
	}
	if rec == nil {
		rec = Record{}
	}
	return rec
}

// Save serializes the full record and atomically replaces the stored file.
func (s *FileStore) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp history file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
