package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Store is the persistence boundary for client records.
type Store interface {
	// List returns all client records.
	List(ctx context.Context) ([]Record, error)
	// Get returns the record with the given identifier.
	Get(ctx context.Context, id int) (Record, error)
	// GetByEmail returns the record with a matching email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (Record, error)
	// Add assigns the next identifier and persists the record.
	Add(ctx context.Context, rec Record) (Record, error)
	// Update replaces the stored record with the same identifier.
	Update(ctx context.Context, rec Record) error
	// Delete removes and returns the record with the given identifier.
	Delete(ctx context.Context, id int) (Record, error)
}

// fileDocument is the on-disk shape of clients.json.
type fileDocument struct {
	Clients []Record `json:"clients"`
	NextID  int      `json:"next_id"`
}

// FileStore persists client records in a single flat JSON file, the
// system of record inherited from the intake deployments. All methods are
// safe for concurrent use; writes go through a temp file and rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by clients.json under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "clients.json")}, nil
}

func (s *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{NextID: 1}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	return doc, nil
}

func (s *FileStore) save(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal clients: %w", err)
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

// List returns all client records sorted newest-first by creation time.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	records := doc.Clients
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt() > records[j].CreatedAt()
	})
	return records, nil
}

// Get returns the record with the given identifier.
func (s *FileStore) Get(ctx context.Context, id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range doc.Clients {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return nil, errors.NotFound("client", fmt.Sprintf("%d", id))
}

// GetByEmail returns the record with a matching email, case-insensitive.
func (s *FileStore) GetByEmail(ctx context.Context, email string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(email))
	for _, rec := range doc.Clients {
		if strings.ToLower(strings.TrimSpace(rec.Email())) == want {
			return rec, nil
		}
	}
	return nil, errors.NotFound("client", email)
}

// Add assigns the next identifier and persists the record.
func (s *FileStore) Add(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	rec.SetID(doc.NextID)
	doc.NextID++
	doc.Clients = append(doc.Clients, rec)

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update replaces the stored record with the same identifier.
func (s *FileStore) Update(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i, existing := range doc.Clients {
		if existing.ID() == rec.ID() {
			doc.Clients[i] = rec
			return s.save(doc)
		}
	}
	return errors.NotFound("client", fmt.Sprintf("%d", rec.ID()))
}

// Delete removes and returns the record with the given identifier.
func (s *FileStore) Delete(ctx context.Context, id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for i, rec := range doc.Clients {
		if rec.ID() == id {
			doc.Clients = append(doc.Clients[:i], doc.Clients[i+1:]...)
			if err := s.save(doc); err != nil {
				return nil, err
			}
			return rec, nil
		}
	}
	return nil, errors.NotFound("client", fmt.Sprintf("%d", id))
}

var _ Store = (*FileStore)(nil)
