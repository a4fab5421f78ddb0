package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Store is the persistence boundary for the resource directory.
type Store interface {
	// List returns every resource in the corpus.
	List(ctx context.Context) ([]Record, error)
	// UpdateByName replaces the resource whose display name matches.
	UpdateByName(ctx context.Context, name string, rec Record) (Record, error)
}

// FileStore reads the resource directory from structured_resources.json,
// a flat JSON array maintained by the offline import process. Safe for
// concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by structured_resources.json under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "structured_resources.json")}
}

func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	for i := range records {
		records[i].EnsureID()
	}
	return records, nil
}

func (s *FileStore) save(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal resources: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// List returns every resource in the corpus.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// UpdateByName replaces the resource whose display name matches.
func (s *FileStore) UpdateByName(ctx context.Context, name string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, err
	}

	for i, existing := range records {
		if existing.Name() == name {
			rec.EnsureID()
			records[i] = rec
			if err := s.save(records); err != nil {
				return Record{}, err
			}
			return rec, nil
		}
	}
	return Record{}, errors.NotFound("resource", name)
}

var _ Store = (*FileStore)(nil)
