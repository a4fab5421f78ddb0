package audit

import (
	"context"
	"sync"
	"time"
)

// Repository provides append-only audit log storage.
type Repository interface {
	// Initialize loads the last hash so new entries chain correctly.
	Initialize(ctx context.Context) error

	// Append writes a new entry, setting its sequence and chaining its
	// hash to the previous entry.
	Append(ctx context.Context, entry *Entry) error

	// List returns matching entries newest first, plus the total match
	// count before limit/offset.
	List(ctx context.Context, filter ListFilter) ([]*Entry, int, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int, error)

	// VerifyChain checks hash integrity over the most recent entries.
	// A limit of 0 checks the whole log.
	VerifyChain(ctx context.Context, limit int) (*VerifyResult, error)

	// LastHash returns the newest entry's hash.
	LastHash() string
}

// MemoryRepository keeps the audit log in memory. Used when Postgres
// is not configured; the log does not survive a restart.
type MemoryRepository struct {
	mu       sync.Mutex
	entries  []*Entry
	lastHash string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Initialize(ctx context.Context) error { return nil }

func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()
	entry.Sequence = int64(len(r.entries) + 1)

	r.entries = append(r.entries, entry)
	r.lastHash = entry.Hash
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*Entry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filterMatches(r.entries[i], filter) {
			matched = append(matched, r.entries[i])
		}
	}

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			return []*Entry{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}

func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int) (*VerifyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return verifyEntries(entries), nil
}

func (r *MemoryRepository) LastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

func filterMatches(e *Entry, f ListFilter) bool {
	if f.Action != "" && !hasPrefix(e.Action, f.Action) {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// verifyEntries walks a contiguous slice of the log checking both the
// per-entry hash and the prev-hash linkage.
func verifyEntries(entries []*Entry) *VerifyResult {
	result := &VerifyResult{
		Valid:        true,
		EntriesTotal: len(entries),
		VerifiedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	for i, entry := range entries {
		if !entry.VerifyHash() {
			result.Valid = false
			result.BrokenEntries = append(result.BrokenEntries, entry.ID.String())
			continue
		}
		if i > 0 && entry.PrevHash != entries[i-1].Hash {
			result.Valid = false
			result.BrokenEntries = append(result.BrokenEntries, entry.ID.String())
		}
	}
	return result
}
