package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/nextstep-care/platform/internal/shared/types"
)

// ActorType identifies who performed an audited action.
type ActorType string

const (
	ActorTypeWorker ActorType = "worker"
	ActorTypeClient ActorType = "client"
	ActorTypeSystem ActorType = "system"
)

// Entry is an immutable audit log record. Entries form a hash chain:
// each entry's hash covers its own fields plus the previous entry's
// hash, so any later edit to a stored entry is detectable.
type Entry struct {
	ID        types.ID  `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	ActorType ActorType `json:"actor_type"`
	ActorID   types.ID  `json:"actor_id,omitempty"`

	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id,omitempty"`

	Changes map[string]any `json:"changes,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewEntry builds an entry with its hash computed over prevHash.
// Timestamps are truncated to microseconds so hashes survive a
// Postgres round trip.
func NewEntry(actorType ActorType, actorID types.ID, action, resourceType, resourceID string, changes map[string]any, prevHash string) *Entry {
	entry := &Entry{
		ID:           types.NewID(),
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		PrevHash:     prevHash,
		ActorType:    actorType,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
	}
	entry.Hash = entry.calculateHash()
	return entry
}

func (e *Entry) calculateHash() string {
	data := map[string]any{
		"id":            e.ID,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"prev_hash":     e.PrevHash,
		"actor_type":    e.ActorType,
		"actor_id":      e.ActorID,
		"action":        e.Action,
		"resource_type": e.ResourceType,
	}
	if e.ResourceID != "" {
		data["resource_id"] = e.ResourceID
	}
	if len(e.Changes) > 0 {
		data["changes"] = e.Changes
	}

	jsonData, _ := canonicalJSON(data)
	sum := sha256.Sum256(jsonData)
	return hex.EncodeToString(sum[:])
}

// VerifyHash reports whether the stored hash still matches the entry.
func (e *Entry) VerifyHash() bool {
	return e.Hash == e.calculateHash()
}

// ListFilter restricts which entries List returns.
type ListFilter struct {
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   string     `json:"resource_id,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}

// VerifyResult is the outcome of a chain integrity check.
type VerifyResult struct {
	Valid         bool     `json:"valid"`
	EntriesTotal  int      `json:"entries_checked"`
	BrokenEntries []string `json:"broken_entries,omitempty"`
	VerifiedAt    string   `json:"verified_at"`
}

// canonicalJSON produces JSON with sorted map keys. Go maps iterate in
// random order and JSONB may reorder keys, so hashing needs a stable
// encoding.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return canonicalMarshal(parsed)
}

func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	default:
		return json.Marshal(val)
	}
}
